package finance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/hatvoni/insider/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const summaryCacheTTL = 30 * time.Second

// Service records money flows and aggregates them.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache *redis.Client
	group singleflight.Group
}

// NewService builds Service. The cache client may be nil; summaries are then
// computed on every call.
func NewService(repo RepositoryPort, audit AuditPort, cache *redis.Client) *Service {
	return &Service{repo: repo, audit: audit, cache: cache}
}

// RecordInput describes a finance entry to append.
type RecordInput struct {
	Type        EntryType
	EntryDate   time.Time
	Amount      decimal.Decimal
	Currency    string
	Category    string
	Description string
	ActorID     int64
}

// Record appends a contribution, income or expense entry.
func (s *Service) Record(ctx context.Context, input RecordInput) (*Entry, error) {
	switch input.Type {
	case EntryContribution, EntryIncome, EntryExpense:
	default:
		return nil, ErrInvalidType
	}
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, errors.New("finance: category required")
	}
	if input.EntryDate.IsZero() {
		input.EntryDate = time.Now().UTC()
	}
	if input.Currency == "" {
		input.Currency = "HUF"
	}

	entry, err := s.repo.Insert(ctx, Entry{
		ID:          uuid.NewString(),
		Type:        input.Type,
		EntryDate:   input.EntryDate,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Category:    strings.TrimSpace(input.Category),
		Description: strings.TrimSpace(input.Description),
		RecordedBy:  input.ActorID,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummaries(ctx)

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "finance:record",
			Entity:   "finance_entry",
			EntityID: entry.ID,
			Meta:     map[string]any{"type": string(entry.Type), "amount": entry.Amount.String(), "category": entry.Category},
		})
	}
	return &entry, nil
}

// List returns entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, int, error) {
	return s.repo.List(ctx, filter)
}

// Summary aggregates entries over [from, to]. Identical concurrent requests
// are collapsed through singleflight and the result is cached briefly.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	key := summaryKey(from, to)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached Summary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		summary, err := s.repo.Aggregate(ctx, from, to)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(summary); err == nil {
				_ = s.cache.Set(ctx, key, raw, summaryCacheTTL).Err()
			}
		}
		return &summary, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Summary), nil
}

func summaryKey(from, to time.Time) string {
	return "finance:summary:" + from.UTC().Format("2006-01-02") + ":" + to.UTC().Format("2006-01-02")
}

func (s *Service) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, "finance:summary:*", 100).Iterator()
	for iter.Next(ctx) {
		_ = s.cache.Del(ctx, iter.Val()).Err()
	}
}
