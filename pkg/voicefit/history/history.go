// Package history keeps the local append-and-trim ledgers: past analyses, credit
// events and precision-plan requests. Each ledger is a JSON list stored under a
// fixed key, newest entry first.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/VoiceFit/pkg/logger"
	"github.com/himanishpuri/VoiceFit/pkg/voicefit/model"
)

const (
	AnalysisKey  = "voicefit.analysis.history"
	CreditKey    = "voicefit.credit.events"
	PrecisionKey = "voicefit.precision.events"
	BalanceKey   = "voicefit.credit.balance"

	AnalysisLimit  = 30
	CreditLimit    = 100
	PrecisionLimit = 100
)

var (
	ErrInsufficientCredits = errors.New("not enough credits: charge credits first")
	ErrInvalidAmount       = errors.New("credit amount must be positive")
)

// KeyValueStore is the persistence collaborator, shaped like browser local storage.
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

type Ledger struct {
	mu    sync.Mutex
	store KeyValueStore
	log   Logger
	now   func() time.Time
}

type Option func(*Ledger)

func WithLogger(log Logger) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(store KeyValueStore, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.GetLogger()
	}
	return l
}

// NewID returns "<prefix>-<uuid>".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// load returns the list under key. Missing, unreadable and corrupt data all read
// as an empty list.
func load[T any](l *Ledger, key string) []T {
	raw, ok, err := l.store.Get(key)
	if err != nil {
		l.log.Warnf("reading %s: %v", key, err)
		return []T{}
	}
	if !ok || raw == "" {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		l.log.Warnf("discarding corrupt %s: %v", key, err)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// prepend puts item at the head of the list under key and trims it to limit.
func prepend[T any](l *Ledger, key string, item T, limit int) ([]T, error) {
	next := append([]T{item}, load[T](l, key)...)
	if len(next) > limit {
		next = next[:limit]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := l.store.Set(key, string(raw)); err != nil {
		return nil, fmt.Errorf("saving %s: %w", key, err)
	}
	return next, nil
}

func (l *Ledger) Analyses() []model.AnalysisRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return load[model.AnalysisRecord](l, AnalysisKey)
}

// AddAnalysis records a completed analysis.
func (l *Ledger) AddAnalysis(source model.AnalysisSource, result model.AnalyzeResponse) (model.AnalysisRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := model.AnalysisRecord{
		ID:        NewID("analysis"),
		CreatedAt: l.now().UTC(),
		Source:    source,
		Result:    result,
	}
	if _, err := prepend(l, AnalysisKey, rec, AnalysisLimit); err != nil {
		return model.AnalysisRecord{}, err
	}
	return rec, nil
}

// FindAnalysis looks a record up by ID.
func (l *Ledger) FindAnalysis(id string) (model.AnalysisRecord, bool) {
	for _, rec := range l.Analyses() {
		if rec.ID == id {
			return rec, true
		}
	}
	return model.AnalysisRecord{}, false
}

func (l *Ledger) CreditEvents() []model.CreditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return load[model.CreditEvent](l, CreditKey)
}

// Balance is the running credit balance. It is stored separately from the event
// list so that trimming old events does not change it.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadBalance()
}

// loadBalance reads BalanceKey, falling back to the sum of the retained events
// when the key is missing or unreadable.
func (l *Ledger) loadBalance() int {
	raw, ok, err := l.store.Get(BalanceKey)
	switch {
	case err != nil:
		l.log.Warnf("reading %s: %v", BalanceKey, err)
	case ok && raw != "":
		n, err := strconv.Atoi(raw)
		if err == nil {
			return n
		}
		l.log.Warnf("discarding corrupt %s: %v", BalanceKey, err)
	}
	return balance(load[model.CreditEvent](l, CreditKey))
}

func (l *Ledger) saveBalance(n int) error {
	if err := l.store.Set(BalanceKey, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("saving %s: %w", BalanceKey, err)
	}
	return nil
}

func balance(events []model.CreditEvent) int {
	total := 0
	for _, e := range events {
		if e.Type == model.CreditCharge {
			total += e.Amount
		} else {
			total -= e.Amount
		}
	}
	return total
}

func (l *Ledger) Charge(amount int) (model.CreditEvent, error) {
	if amount <= 0 {
		return model.CreditEvent{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.loadBalance()
	e := model.CreditEvent{
		ID:        NewID("credit"),
		CreatedAt: l.now().UTC(),
		Type:      model.CreditCharge,
		Amount:    amount,
		Note:      fmt.Sprintf("credit charge +%d", amount),
	}
	if _, err := prepend(l, CreditKey, e, CreditLimit); err != nil {
		return model.CreditEvent{}, err
	}
	if err := l.saveBalance(current + amount); err != nil {
		return model.CreditEvent{}, err
	}
	return e, nil
}

// ConsumeCredit spends one credit, or returns ErrInsufficientCredits.
func (l *Ledger) ConsumeCredit(note string) (model.CreditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.loadBalance()
	if current < 1 {
		return model.CreditEvent{}, ErrInsufficientCredits
	}

	e := model.CreditEvent{
		ID:        NewID("credit"),
		CreatedAt: l.now().UTC(),
		Type:      model.CreditUse,
		Amount:    1,
		Note:      note,
	}
	if _, err := prepend(l, CreditKey, e, CreditLimit); err != nil {
		return model.CreditEvent{}, err
	}
	if err := l.saveBalance(current - 1); err != nil {
		return model.CreditEvent{}, err
	}
	return e, nil
}

func (l *Ledger) PrecisionEvents() []model.PrecisionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return load[model.PrecisionEvent](l, PrecisionKey)
}

// RequestPrecision records a precision-analysis request. The free plan costs one
// credit; paid plans cost nothing.
func (l *Ledger) RequestPrecision(plan model.PrecisionPlan) (model.PrecisionEvent, error) {
	used := 0
	if plan == model.PlanFree {
		if _, err := l.ConsumeCredit("precision analysis x1"); err != nil {
			return model.PrecisionEvent{}, err
		}
		used = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := model.PrecisionEvent{
		ID:         NewID("precision"),
		CreatedAt:  l.now().UTC(),
		Plan:       plan,
		UsedCredit: used,
		Status:     model.PrecisionRequested,
	}
	if _, err := prepend(l, PrecisionKey, e, PrecisionLimit); err != nil {
		return model.PrecisionEvent{}, err
	}
	return e, nil
}
