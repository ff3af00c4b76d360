package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// AuditLog is the append-only record of finalized taps.  Nothing in this
// package mutates a stored TagLog; mistakes are fixed by appending a
// correction that references the original.
type AuditLog struct {
	store  store.TagLogStore
	policy Policy
	now    func() time.Time
	locks  *keyedMutex
}

func NewAuditLog(st store.TagLogStore, policy Policy) *AuditLog {
	return &AuditLog{store: st, policy: policy.withDefaults(), now: time.Now, locks: newKeyedMutex()}
}

// Append commits rec and its optional points entry in one write.
func (a *AuditLog) Append(ctx context.Context, rec types.TagLog, points *types.PointsLedgerEntry) (types.TagLog, *types.PointsLedgerEntry, error) {
	if rec.UID == "" || rec.PersonID == "" {
		return types.TagLog{}, nil, invalid("tag log needs uid and person_id")
	}
	if !rec.EventType.Valid() {
		return types.TagLog{}, nil, invalid("unknown event type %q", rec.EventType)
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = a.now().UTC()
	}
	saved, entry, err := a.store.Append(ctx, rec, points)
	if err != nil {
		return types.TagLog{}, nil, fmt.Errorf("append tag log: %w", err)
	}
	return saved, entry, nil
}

func (a *AuditLog) Get(ctx context.Context, id int64) (types.TagLog, error) {
	rec, err := a.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.TagLog{}, newError(CodeNotFound, fmt.Errorf("tag log %d", id))
	}
	if err != nil {
		return types.TagLog{}, fmt.Errorf("get tag log: %w", err)
	}
	return rec, nil
}

// Query returns one page of tag logs, newest first, and the total match
// count.  Filters are independent; zero values mean "any".
func (a *AuditLog) Query(ctx context.Context, f types.TagLogFilter, p types.Page) (types.TagLogPage, error) {
	f.UID = strings.TrimSpace(f.UID)
	for _, et := range f.EventTypes {
		if !et.Valid() {
			return types.TagLogPage{}, invalid("unknown event type %q", et)
		}
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return types.TagLogPage{}, invalid("from must be before to")
	}
	p = p.Normalize()

	items, total, err := a.store.Query(ctx, f, p)
	if err != nil {
		return types.TagLogPage{}, fmt.Errorf("query tag logs: %w", err)
	}
	if items == nil {
		items = []types.TagLog{}
	}
	return types.TagLogPage{Items: items, TotalCount: total, Page: p.Number, PageSize: p.Size}, nil
}

// LastCheckIn returns today's newest checked-in record for uid, or nil.
func (a *AuditLog) LastCheckIn(ctx context.Context, uid string, since time.Time) (*types.TagLog, error) {
	rec, err := a.store.LastCheckIn(ctx, uid, since)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last check-in: %w", err)
	}
	return &rec, nil
}

// maxCorrectionDepth bounds the CorrectsID walk back to the record a chain
// of corrections started from.
const maxCorrectionDepth = 32

// Correct appends a compensating record for tag log id.  Corrections always
// reference the root of their chain: correcting a correction corrects the
// record it compensated.  The booked delta moves the root's effective points
// (its own award plus every earlier correction) to what the new event type
// earns.
func (a *AuditLog) Correct(ctx context.Context, id int64, req types.CorrectionRequest) (types.TagLog, error) {
	req.Note = strings.TrimSpace(req.Note)
	if err := validateStruct(req); err != nil {
		return types.TagLog{}, err
	}
	if !req.EventType.Valid() || req.EventType == types.EventAlreadyTagged {
		return types.TagLog{}, invalid("cannot correct to event type %q", req.EventType)
	}

	root, err := a.correctionRoot(ctx, id)
	if err != nil {
		return types.TagLog{}, err
	}

	unlock, err := a.locks.Lock(ctx, strconv.FormatInt(root.ID, 10))
	if err != nil {
		return types.TagLog{}, fmt.Errorf("wait for tag log %d: %w", root.ID, err)
	}
	defer unlock()

	chain, err := a.store.Corrections(ctx, root.ID)
	if err != nil {
		return types.TagLog{}, fmt.Errorf("corrections of %d: %w", root.ID, err)
	}
	current, points := root.EventType, valueOr(root.PointsAwarded)
	for _, c := range chain {
		current = c.EventType
		points += valueOr(c.PointsAwarded)
	}
	if current == req.EventType {
		return types.TagLog{}, invalid("tag log %d is already %s", root.ID, req.EventType)
	}

	now := a.now().UTC()
	rec := types.TagLog{
		UID:        root.UID,
		PersonID:   root.PersonID,
		Role:       root.Role,
		EventType:  req.EventType,
		OccurredAt: now,
		DeviceID:   root.DeviceID,
		DeviceType: root.DeviceType,
		CorrectsID: &root.ID,
		Note:       req.Note,
	}

	var entry *types.PointsLedgerEntry
	delta := valueOr(a.policy.PointsFor(req.EventType)) - points
	if delta != 0 {
		rec.PointsAwarded = intPtr(delta)
		entry = &types.PointsLedgerEntry{PersonID: root.PersonID, Delta: delta, OccurredAt: now}
	}

	saved, _, err := a.Append(ctx, rec, entry)
	return saved, err
}

// correctionRoot follows CorrectsID from id to the record the chain
// started from.
func (a *AuditLog) correctionRoot(ctx context.Context, id int64) (types.TagLog, error) {
	rec, err := a.Get(ctx, id)
	for depth := 0; err == nil && rec.CorrectsID != nil; depth++ {
		if depth == maxCorrectionDepth {
			return types.TagLog{}, fmt.Errorf("tag log %d: correction chain deeper than %d", id, maxCorrectionDepth)
		}
		rec, err = a.Get(ctx, *rec.CorrectsID)
	}
	return rec, err
}

// PointsSummary is a person's ledger with its running balance.
type PointsSummary struct {
	PersonID string                    `json:"person_id"`
	Balance  int                       `json:"balance"`
	Entries  []types.PointsLedgerEntry `json:"entries"`
}

func (a *AuditLog) Points(ctx context.Context, personID string) (PointsSummary, error) {
	personID = strings.TrimSpace(personID)
	if personID == "" {
		return PointsSummary{}, invalid("person_id is required")
	}
	entries, err := a.store.Points(ctx, personID)
	if err != nil {
		return PointsSummary{}, fmt.Errorf("points: %w", err)
	}
	sum := PointsSummary{PersonID: personID, Entries: entries}
	if sum.Entries == nil {
		sum.Entries = []types.PointsLedgerEntry{}
	}
	for _, e := range entries {
		sum.Balance += e.Delta
	}
	return sum, nil
}

func valueOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
