package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ErrUnsafeQuery is returned for any statement that is not exactly one
// read-only SELECT.
var ErrUnsafeQuery = errors.New("unsafe query rejected")

// hiddenColumn may never be referenced by generated SQL.
const hiddenColumn = "password"

// protectedTable is the table holding hiddenColumn.
const protectedTable = "member_details"

// allowedFuncs are the functions generated SQL may call. Anything else,
// including admin and I/O functions, is rejected.
var allowedFuncs = map[string]struct{}{
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {},
	"round": {}, "abs": {}, "ceil": {}, "ceiling": {}, "floor": {},
	"lower": {}, "upper": {}, "initcap": {}, "trim": {}, "btrim": {}, "ltrim": {}, "rtrim": {},
	"length": {}, "char_length": {}, "character_length": {},
	"concat": {}, "concat_ws": {}, "substring": {}, "substr": {}, "replace": {},
	"left": {}, "right": {}, "position": {}, "strpos": {}, "instr": {}, "split_part": {},
	"string_agg": {}, "group_concat": {},
	"coalesce": {}, "nullif": {}, "ifnull": {}, "greatest": {}, "least": {},
	"row_number": {}, "rank": {}, "dense_rank": {}, "ntile": {},
	"lag": {}, "lead": {}, "first_value": {}, "last_value": {},
	"date": {}, "strftime": {}, "julianday": {}, "date_trunc": {}, "date_part": {},
	"extract": {}, "to_char": {}, "now": {},
}

// Guard validates model output before it reaches the executor. It parses
// with the PostgreSQL grammar and accepts a single SELECT (including set
// operations and read-only CTEs). INTO, row locks, block comments, calls
// outside allowedFuncs and any reference that could read
// member_details.password are rejected.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

func (g *Guard) Check(query string) error {
	// PostgreSQL nests block comments and SQLite does not, so a block
	// comment can hide a statement from this parser.
	scan, err := pg_query.Scan(query)
	if err != nil {
		return fmt.Errorf("%w: does not parse: %v", ErrUnsafeQuery, err)
	}
	for _, tok := range scan.GetTokens() {
		if tok.GetToken() == pg_query.Token_C_COMMENT {
			return fmt.Errorf("%w: block comments are not allowed", ErrUnsafeQuery)
		}
	}

	tree, err := pg_query.Parse(query)
	if err != nil {
		return fmt.Errorf("%w: does not parse: %v", ErrUnsafeQuery, err)
	}

	stmts := tree.GetStmts()
	switch len(stmts) {
	case 0:
		return fmt.Errorf("%w: empty statement", ErrUnsafeQuery)
	case 1:
	default:
		return fmt.Errorf("%w: %d statements, expected one", ErrUnsafeQuery, len(stmts))
	}

	sel := stmts[0].GetStmt().GetSelectStmt()
	if sel == nil {
		return fmt.Errorf("%w: only SELECT statements are allowed", ErrUnsafeQuery)
	}
	return inspect(sel)
}

// inspect walks the whole statement tree.
func inspect(root *pg_query.SelectStmt) error {
	// A bare * is allowed only as an entry of the outermost select list,
	// where the expanded hidden column keeps its name and the executor
	// drops it.
	topStars := map[*pg_query.ColumnRef]bool{}
	if root.GetLarg() == nil {
		for _, target := range root.GetTargetList() {
			if ref := target.GetResTarget().GetVal().GetColumnRef(); ref != nil {
				topStars[ref] = true
			}
		}
	}

	// Names that refer to a whole member_details row.
	rowNames := map[string]bool{protectedTable: true}
	err := walk(root.ProtoReflect(), func(m protoreflect.ProtoMessage) error {
		if rv, ok := m.(*pg_query.RangeVar); ok && strings.EqualFold(rv.GetRelname(), protectedTable) {
			if alias := rv.GetAlias().GetAliasname(); alias != "" {
				rowNames[strings.ToLower(alias)] = true
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return walk(root.ProtoReflect(), func(m protoreflect.ProtoMessage) error {
		switch n := m.(type) {
		case *pg_query.InsertStmt, *pg_query.UpdateStmt, *pg_query.DeleteStmt, *pg_query.MergeStmt:
			return fmt.Errorf("%w: data-modifying statement inside SELECT", ErrUnsafeQuery)
		case *pg_query.SelectStmt:
			if n.GetIntoClause() != nil {
				return fmt.Errorf("%w: SELECT INTO is not allowed", ErrUnsafeQuery)
			}
			if len(n.GetLockingClause()) > 0 {
				return fmt.Errorf("%w: row locking clauses are not allowed", ErrUnsafeQuery)
			}
		case *pg_query.CommonTableExpr:
			if len(n.GetAliascolnames()) > 0 {
				return fmt.Errorf("%w: column lists on WITH queries are not allowed", ErrUnsafeQuery)
			}
		case *pg_query.Alias:
			if len(n.GetColnames()) > 0 {
				return fmt.Errorf("%w: column aliases on FROM items are not allowed", ErrUnsafeQuery)
			}
		case *pg_query.ColumnRef:
			return checkColumnRef(n, topStars[n], rowNames)
		case *pg_query.FuncCall:
			return checkFuncCall(n)
		}
		return nil
	})
}

func checkColumnRef(ref *pg_query.ColumnRef, topLevel bool, rowNames map[string]bool) error {
	fields := ref.GetFields()
	for _, f := range fields {
		if f.GetAStar() != nil && !topLevel {
			return fmt.Errorf("%w: * is only allowed in the outer select list", ErrUnsafeQuery)
		}
		if strings.EqualFold(f.GetString_().GetSval(), hiddenColumn) {
			return fmt.Errorf("%w: column %s is not readable", ErrUnsafeQuery, hiddenColumn)
		}
	}
	if len(fields) == 1 && rowNames[strings.ToLower(fields[0].GetString_().GetSval())] {
		return fmt.Errorf("%w: whole-row references to %s are not allowed", ErrUnsafeQuery, protectedTable)
	}
	return nil
}

func checkFuncCall(call *pg_query.FuncCall) error {
	parts := make([]string, 0, len(call.GetFuncname()))
	for _, n := range call.GetFuncname() {
		parts = append(parts, strings.ToLower(n.GetString_().GetSval()))
	}
	name := strings.Join(parts, ".")
	switch {
	case len(parts) == 1:
	case len(parts) == 2 && parts[0] == "pg_catalog":
	default:
		return fmt.Errorf("%w: function %s is not allowed", ErrUnsafeQuery, name)
	}
	if _, ok := allowedFuncs[parts[len(parts)-1]]; !ok {
		return fmt.Errorf("%w: function %s is not allowed", ErrUnsafeQuery, name)
	}
	return nil
}

// walk calls fn for m and every message nested in it, stopping at the
// first error.
func walk(m protoreflect.Message, fn func(protoreflect.ProtoMessage) error) error {
	if err := fn(m.Interface()); err != nil {
		return err
	}
	var err error
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Kind() != protoreflect.MessageKind || fd.IsMap() {
			return true
		}
		if fd.IsList() {
			list := v.List()
			for i := 0; i < list.Len(); i++ {
				if err = walk(list.Get(i).Message(), fn); err != nil {
					return false
				}
			}
			return true
		}
		err = walk(v.Message(), fn)
		return err == nil
	})
	return err
}
