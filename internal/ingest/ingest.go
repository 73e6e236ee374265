// Package ingest copies the chapter's member details and weekly scores from
// the BNI REST endpoints into the roster store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/xaenox/bni-assistant/internal/models"
	"github.com/xaenox/bni-assistant/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	DetailsURL string
	ScoresURL  string
	Timeout    time.Duration
}

// Result counts the rows written by one run.
type Result struct {
	Members int
	Scores  int
}

type Ingester struct {
	cfg    Config
	client *http.Client
	store  storage.Writer
	logger *zap.Logger
}

func New(cfg Config, store storage.Writer, logger *zap.Logger) *Ingester {
	return &Ingester{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		store:  store,
		logger: logger,
	}
}

// Run fetches both feeds, then upserts members by id and inserts score rows.
// With replaceScores the previous score rows are removed first.
func (in *Ingester) Run(ctx context.Context, replaceScores bool) (Result, error) {
	var details, scores []map[string]any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = in.fetch(gctx, in.cfg.DetailsURL)
		return err
	})
	g.Go(func() error {
		var err error
		scores, err = in.fetch(gctx, in.cfg.ScoresURL)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	members := make([]models.Member, 0, len(details))
	for i, item := range details {
		m, err := parseMember(item)
		if err != nil {
			return Result{}, fmt.Errorf("member record %d: %w", i, err)
		}
		members = append(members, m)
	}

	rows := make([]models.MemberScore, 0, len(scores))
	for i, item := range scores {
		s, err := parseScore(item)
		if err != nil {
			return Result{}, fmt.Errorf("score record %d: %w", i, err)
		}
		rows = append(rows, s)
	}

	if err := in.store.EnsureSchema(ctx); err != nil {
		return Result{}, err
	}
	if err := in.store.UpsertMembers(ctx, members); err != nil {
		return Result{}, err
	}
	if err := in.store.InsertScores(ctx, rows, replaceScores); err != nil {
		return Result{}, err
	}

	in.logger.Info("Ingestion finished",
		zap.Int("members", len(members)),
		zap.Int("scores", len(rows)),
		zap.Bool("replace_scores", replaceScores))
	return Result{Members: len(members), Scores: len(rows)}, nil
}

type envelope struct {
	Data []map[string]any `json:"data"`
}

func (in *Ingester) fetch(ctx context.Context, url string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	in.logger.Debug("Fetched feed", zap.String("url", url), zap.Int("records", len(env.Data)))
	return env.Data, nil
}

func parseMember(item map[string]any) (models.Member, error) {
	raw, ok := item["id"]
	if !ok {
		return models.Member{}, fmt.Errorf("missing id")
	}
	id, err := toInt(raw)
	if err != nil {
		return models.Member{}, fmt.Errorf("id: %w", err)
	}
	return models.Member{
		ID:             id,
		Name:           cast.ToString(item["member_name"]),
		Password:       cast.ToString(item["password"]),
		Classification: cast.ToString(item["classification"]),
		CompanyName:    cast.ToString(item["company_name"]),
		Phone:          cast.ToString(item["phone"]),
		TeamName:       cast.ToString(item["teamname"]),
		Powerteam:      cast.ToString(item["powerteam"]),
		UserType:       models.UserType(cast.ToString(item["user_type"])),
		ActiveStatus:   cast.ToString(item["activestatus"]),
	}, nil
}

func parseScore(item map[string]any) (models.MemberScore, error) {
	p := scoreParser{item: item}
	s := models.MemberScore{
		Name:           cast.ToString(item["NAME"]),
		Powerteam:      cast.ToString(item["powerteam"]),
		TotalScore:     p.int("Total_Score"),
		Referral:       p.metric("Referral"),
		TYFTB:          p.metric("TYFTB"),
		Visitor:        p.metric("Visitor"),
		Testimonial:    p.metric("Testimonial"),
		Training:       p.metric("Training"),
		Absent:         p.metric("Absent"),
		ArrivingOnTime: p.metric("Arrivingontime"),
	}
	return s, p.err
}

// scoreParser keeps the first conversion error.
type scoreParser struct {
	item map[string]any
	err  error
}

func (p *scoreParser) int(key string) int64 {
	n, err := toInt(p.item[key])
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
	return n
}

func (p *scoreParser) metric(category string) models.Metric {
	return models.Metric{
		Score:     p.int(category + "_Score"),
		Maintain:  p.int(category + "_maintain"),
		Recommend: p.int(category + "_Recom"),
	}
}

// toInt accepts JSON numbers, decimal strings and null (as zero). Strings
// are always read in base 10; cast would take a leading zero as octal.
func toInt(v any) (int64, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	}
	return cast.ToInt64E(v)
}
