package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/tagbook/internal/platform/logger"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/events"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// Deps wires a TaggingService.  Readers and Publisher are optional.
type Deps struct {
	Identities *IdentityRegistry
	Schedule   *ScheduleLookup
	Settings   *SettingsCache
	Audit      *AuditLog
	Readers    *ReaderRegistry
	Publisher  events.Publisher
	Logger     *logger.Logger
	Policy     Policy
	Now        func() time.Time
}

// TaggingService turns taps into committed tag logs or pending decisions.
// All work for one UID is serialised by a per-UID lock; different UIDs run
// in parallel.
type TaggingService struct {
	identities *IdentityRegistry
	schedule   *ScheduleLookup
	settings   *SettingsCache
	audit      *AuditLog
	readers    *ReaderRegistry
	publisher  events.Publisher
	log        *logger.Logger
	policy     Policy
	now        func() time.Time

	locks   *keyedMutex
	dedup   *Deduplicator
	pending *pendingDecisions
	newID   func() string
}

func NewTaggingService(d Deps) *TaggingService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &TaggingService{
		identities: d.Identities,
		schedule:   d.Schedule,
		settings:   d.Settings,
		audit:      d.Audit,
		readers:    d.Readers,
		publisher:  d.Publisher,
		log:        d.Logger.With("service", "TaggingService"),
		policy:     d.Policy.withDefaults(),
		now:        d.Now,
		locks:      newKeyedMutex(),
		dedup:      NewDeduplicator(),
		pending:    newPendingDecisions(),
		newID:      func() string { return uuid.NewString() },
	}
}

// SubmitTap classifies one tap.  A rate-limited tap is still committed as
// already_tagged and returned without error.
func (s *TaggingService) SubmitTap(ctx context.Context, req types.TapRequest) (types.TapResult, error) {
	now := s.now().UTC()

	req.UID = strings.TrimSpace(req.UID)
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.DeviceType = strings.TrimSpace(req.DeviceType)
	if err := validateStruct(req); err != nil {
		return types.TapResult{}, err
	}
	deviceTime, err := parseOptionalTimestamp(req.OccurredAt)
	if err != nil {
		return types.TapResult{}, err
	}

	id, err := s.identities.Resolve(ctx, req.UID)
	if err != nil {
		return types.TapResult{}, err
	}
	s.noteSeen(ctx, req.DeviceID, req.DeviceType, now)

	unlock, err := s.locks.Lock(ctx, id.UID)
	if err != nil {
		return types.TapResult{}, fmt.Errorf("wait for uid: %w", err)
	}
	defer unlock()

	if _, busy := s.pending.Active(id.UID, now); busy {
		return types.TapResult{}, newError(CodeDecisionInProgress, nil)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return types.TapResult{}, err
	}

	tap := tapContext{
		identity:   id,
		at:         now,
		deviceID:   req.DeviceID,
		deviceType: req.DeviceType,
		deviceTime: deviceTime,
	}

	adm := s.dedup.Admit(id.UID, now, settings)
	if !adm.Admitted {
		s.log.Info("tap rate limited", "uid", id.UID, "recent", adm.Recent, "window", adm.Window.String())
		rec, _, err := s.commit(ctx, tap, commitSpec{
			eventType: types.EventAlreadyTagged,
			note:      string(CodeTooManyTaps),
		})
		if err != nil {
			return types.TapResult{}, err
		}
		return types.TapResult{
			Status:      types.TapCommitted,
			Message:     displayMessages[CodeTooManyTaps],
			DisplayName: id.DisplayName,
			ServerTime:  now.Format(time.RFC3339Nano),
			EventType:   rec.EventType,
			TagLogID:    rec.ID,
			Reason:      string(CodeTooManyTaps),
		}, nil
	}

	res, err := s.classifyAndApply(ctx, tap, settings)
	if err != nil {
		s.dedup.Revert(id.UID, now)
		return types.TapResult{}, err
	}
	return res, nil
}

func (s *TaggingService) classifyAndApply(ctx context.Context, tap tapContext, settings types.Settings) (types.TapResult, error) {
	id := tap.identity

	schedule, err := s.schedule.EntriesForToday(ctx, id.PersonID, id.Role, tap.at)
	if err != nil {
		return types.TapResult{}, err
	}
	var prior *types.TagLog
	if id.Role.Employee() {
		dayStart, _ := dayBounds(tap.at, s.policy.Location)
		if prior, err = s.audit.LastCheckIn(ctx, id.UID, dayStart); err != nil {
			return types.TapResult{}, err
		}
	}

	out := Classify(ClassifyInput{
		Identity:     id,
		At:           tap.at,
		Schedule:     schedule,
		Settings:     settings,
		PriorCheckIn: prior,
	}, s.policy)

	if out.Pending {
		return s.openPending(tap, out, prior)
	}

	rec, _, err := s.commit(ctx, tap, commitSpec{
		eventType: out.EventType,
		points:    out.Points,
		transport: out.Transport,
	})
	if err != nil {
		return types.TapResult{}, err
	}
	return types.TapResult{
		Status:        types.TapCommitted,
		Message:       commitMessage(rec.EventType),
		DisplayName:   id.DisplayName,
		ServerTime:    tap.at.Format(time.RFC3339Nano),
		EventType:     rec.EventType,
		TagLogID:      rec.ID,
		PointsAwarded: rec.PointsAwarded,
		Schedule:      out.Schedule,
		Transport:     out.Transport,
	}, nil
}

func (s *TaggingService) openPending(tap tapContext, out Outcome, prior *types.TagLog) (types.TapResult, error) {
	pctx := types.PendingContext{
		Choices:       []types.Decision{types.DecisionAccept, types.DecisionOverride, types.DecisionCancel},
		OverrideEvent: out.Override,
		Schedule:      out.Schedule,
		Points:        out.Points,
	}
	if out.Popup == types.PopupNoReservation {
		pctx.Choices = []types.Decision{types.DecisionOverride, types.DecisionCancel}
		pctx.OverrideEvent = types.EventAttendance
	}
	if prior != nil {
		at := prior.OccurredAt
		pctx.PriorEventType = prior.EventType
		pctx.PriorOccurredAt = &at
		pctx.ElapsedMinutes = int(out.Elapsed / time.Minute)
	}

	pd := PendingDecision{
		TapID:      s.newID(),
		Identity:   tap.identity,
		Popup:      out.Popup,
		Candidate:  out.EventType,
		Override:   pctx.OverrideEvent,
		Points:     out.Points,
		Context:    pctx,
		DeviceID:   tap.deviceID,
		DeviceType: tap.deviceType,
		DeviceTime: tap.deviceTime,
		OccurredAt: tap.at,
		ExpiresAt:  tap.at.Add(s.policy.PendingTTL),
	}
	if err := s.pending.Create(pd, tap.at); err != nil {
		return types.TapResult{}, err
	}
	s.log.Info("tap pending", "uid", tap.identity.UID, "tap_id", pd.TapID, "popup", string(pd.Popup))

	expires := pd.ExpiresAt
	return types.TapResult{
		Status:      types.TapPending,
		Message:     pendingMessage(pd.Popup, pctx.ElapsedMinutes),
		DisplayName: tap.identity.DisplayName,
		ServerTime:  tap.at.Format(time.RFC3339Nano),
		TapID:       pd.TapID,
		PopupType:   pd.Popup,
		Candidate:   pd.Candidate,
		Context:     &pctx,
		ExpiresAt:   &expires,
	}, nil
}

// Confirm finalizes a pending decision.  Cancel never writes a tag log;
// accept and override write exactly one.
func (s *TaggingService) Confirm(ctx context.Context, tapID string, req types.ConfirmRequest) (types.ConfirmResult, error) {
	tapID = strings.TrimSpace(tapID)
	if tapID == "" {
		return types.ConfirmResult{}, invalid("tap_id is required")
	}
	if err := validateStruct(req); err != nil {
		return types.ConfirmResult{}, err
	}

	peeked, ok := s.pending.Peek(tapID, s.now())
	if !ok {
		return types.ConfirmResult{}, newError(CodePendingNotFound, fmt.Errorf("tap %s", tapID))
	}
	unlock, err := s.locks.Lock(ctx, peeked.Identity.UID)
	if err != nil {
		return types.ConfirmResult{}, fmt.Errorf("wait for uid: %w", err)
	}
	defer unlock()

	pd, ok := s.pending.Take(tapID, s.now())
	if !ok {
		return types.ConfirmResult{}, newError(CodePendingNotFound, fmt.Errorf("tap %s", tapID))
	}

	plan, ok := resolveDecision(pd, req.Decision, s.policy)
	if !ok {
		s.log.Info("pending cancelled", "uid", pd.Identity.UID, "tap_id", pd.TapID, "popup", string(pd.Popup))
		return types.ConfirmResult{Status: "cancelled", Message: "Cancelled."}, nil
	}
	plan.tapID = pd.TapID

	rec, _, err := s.commit(ctx, tapContext{
		identity:   pd.Identity,
		at:         pd.OccurredAt,
		deviceID:   pd.DeviceID,
		deviceType: pd.DeviceType,
		deviceTime: pd.DeviceTime,
	}, plan)
	if err != nil {
		s.pending.Restore(pd)
		return types.ConfirmResult{}, err
	}
	return types.ConfirmResult{
		Status:  string(types.TapCommitted),
		Message: commitMessage(rec.EventType),
		TagLog:  &rec,
	}, nil
}

// resolveDecision maps a popup decision to what gets committed.  ok is
// false for cancel.
func resolveDecision(pd PendingDecision, d types.Decision, p Policy) (commitSpec, bool) {
	if d == types.DecisionCancel {
		return commitSpec{}, false
	}
	switch pd.Popup {
	case types.PopupNoReservation:
		// Recording anyway is always the reduced-points attendance.
		return commitSpec{
			eventType: types.EventAttendance,
			points:    intPtr(p.ReducedAttendancePoints),
			note:      string(types.PopupNoReservation),
		}, true
	default:
		if d == types.DecisionOverride && pd.Override != "" {
			return commitSpec{eventType: pd.Override, points: p.PointsFor(pd.Override)}, true
		}
		return commitSpec{eventType: pd.Candidate, points: pd.Points}, true
	}
}

// SweepExpired drops expired pending decisions and idle dedup rings.
func (s *TaggingService) SweepExpired(now time.Time) (pending, rings int) {
	return s.pending.Sweep(now), s.dedup.Sweep(now)
}

type tapContext struct {
	identity   types.Identity
	at         time.Time
	deviceID   string
	deviceType string
	deviceTime *time.Time
}

type commitSpec struct {
	eventType types.EventType
	points    *int
	transport *types.TransportAllowance
	tapID     string
	note      string
}

func (s *TaggingService) commit(ctx context.Context, tap tapContext, c commitSpec) (types.TagLog, *types.PointsLedgerEntry, error) {
	id := tap.identity
	rec := types.TagLog{
		UID:           id.UID,
		PersonID:      id.PersonID,
		Role:          id.Role,
		EventType:     c.eventType,
		OccurredAt:    tap.at,
		DeviceID:      tap.deviceID,
		DeviceType:    tap.deviceType,
		DeviceTime:    tap.deviceTime,
		PointsAwarded: c.points,
		TapID:         c.tapID,
		Note:          c.note,
	}
	var entry *types.PointsLedgerEntry
	if c.points != nil && *c.points != 0 {
		entry = &types.PointsLedgerEntry{PersonID: id.PersonID, Delta: *c.points, OccurredAt: tap.at}
	}

	saved, savedEntry, err := s.audit.Append(ctx, rec, entry)
	if err != nil {
		return types.TagLog{}, nil, err
	}
	s.log.Info("tap committed",
		"uid", id.UID,
		"tag_log_id", saved.ID,
		"event_type", string(saved.EventType),
		"role", string(id.Role),
	)
	s.publish(ctx, saved, savedEntry, c.transport)
	return saved, savedEntry, nil
}

func (s *TaggingService) publish(ctx context.Context, rec types.TagLog, entry *types.PointsLedgerEntry, transport *types.TransportAllowance) {
	if s.publisher == nil {
		return
	}
	ev := events.Event{Kind: events.KindTagCommitted, TagLog: rec, Points: entry}
	if rec.Role.Employee() && rec.EventType != types.EventAlreadyTagged {
		fact := &events.PayrollFact{
			PersonID:   rec.PersonID,
			Role:       rec.Role,
			EventType:  rec.EventType,
			OccurredAt: rec.OccurredAt,
		}
		if transport != nil {
			fact.TransportEligible = transport.Eligible
			if transport.Eligible {
				fact.TransportAmount = transport.Amount
			}
		}
		ev.Payroll = fact
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed", "tag_log_id", rec.ID, "err", err)
	}
}

func (s *TaggingService) noteSeen(ctx context.Context, deviceID, deviceType string, at time.Time) {
	if s.readers == nil {
		return
	}
	if err := s.readers.NoteSeen(ctx, deviceID, deviceType, at); err != nil {
		s.log.Warn("reader last-seen update failed", "device_id", deviceID, "err", err)
	}
}

// parseOptionalTimestamp parses a device-reported RFC3339 timestamp.  An
// empty string is not an error; an unparseable one is.
func parseOptionalTimestamp(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, invalid("occurred_at: %v", err)
	}
	u := t.UTC()
	return &u, nil
}

var commitMessages = map[types.EventType]string{
	types.EventAttendance:    "Good morning. Attendance recorded.",
	types.EventCheckout:      "Checked out. See you next time.",
	types.EventReAttendance:  "Welcome back.",
	types.EventPresent:       "On time. Points awarded.",
	types.EventLate:          "Late arrival recorded.",
	types.EventEarly:         "Early arrival recorded.",
	types.EventAbsent:        "Absence recorded.",
	types.EventAlreadyTagged: displayMessages[CodeTooManyTaps],
}

func commitMessage(e types.EventType) string {
	if m, ok := commitMessages[e]; ok {
		return m
	}
	return "Recorded."
}

func pendingMessage(p types.PopupType, elapsedMinutes int) string {
	switch p {
	case types.PopupNoReservation:
		return "No reservation today. Record attendance anyway?"
	case types.PopupCheckoutConfirm:
		return fmt.Sprintf("You checked in %d min ago. Check out now?", elapsedMinutes)
	}
	return "Please confirm."
}
