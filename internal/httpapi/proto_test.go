package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/service"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store/memory"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// Reader-side half of the codec.

func tapRequestToProto(req types.TapRequest) []byte {
	var b []byte
	b = appendString(b, tapReqUID, req.UID)
	b = appendString(b, tapReqDeviceID, req.DeviceID)
	b = appendString(b, tapReqDeviceType, req.DeviceType)
	b = appendString(b, tapReqOccurredAt, req.OccurredAt)
	for k, v := range req.ClientMeta {
		var entry []byte
		entry = appendString(entry, mapKey, k)
		entry = appendString(entry, mapValue, v)
		b = protowire.AppendTag(b, tapReqClientMeta, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func tapResultFromProto(b []byte) (types.TapResult, error) {
	var r types.TapResult
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return types.TapResult{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return types.TapResult{}, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case tapResTagLogID:
				r.TagLogID = int64(v)
			case tapResPointsAwarded:
				p := int(protowire.DecodeZigZag(v))
				r.PointsAwarded = &p
			case tapResTransportEligible:
				transport(&r).Eligible = protowire.DecodeBool(v)
			case tapResTransportAmount:
				transport(&r).Amount = int(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return types.TapResult{}, protowire.ParseError(n)
			}
			b = b[n:]
			s := string(v)
			switch num {
			case tapResStatus:
				r.Status = types.TapStatus(s)
			case tapResMessage:
				r.Message = s
			case tapResDisplayName:
				r.DisplayName = s
			case tapResServerTime:
				r.ServerTime = s
			case tapResEventType:
				r.EventType = types.EventType(s)
			case tapResReason:
				r.Reason = s
			case tapResTapID:
				r.TapID = s
			case tapResPopupType:
				r.PopupType = types.PopupType(s)
			case tapResCandidate:
				r.Candidate = types.EventType(s)
			case tapResExpiresAt:
				t, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return types.TapResult{}, fmt.Errorf("expires_at: %w", err)
				}
				r.ExpiresAt = &t
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return types.TapResult{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return r, nil
}

func transport(r *types.TapResult) *types.TransportAllowance {
	if r.Transport == nil {
		r.Transport = &types.TransportAllowance{}
	}
	return r.Transport
}

func TestTapRequestFromProto(t *testing.T) {
	in := types.TapRequest{
		UID:        "card-t",
		DeviceID:   "gate-1",
		DeviceType: "card",
		OccurredAt: "2026-10-19T08:00:00Z",
		ClientMeta: map[string]string{"fw": "1.4.2", "rssi": "-61"},
	}
	got, err := tapRequestFromProto(tapRequestToProto(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestTapRequestFromProto_SkipsUnknownFields(t *testing.T) {
	b := tapRequestToProto(types.TapRequest{UID: "card-t", DeviceID: "gate-1"})
	b = protowire.AppendTag(b, 42, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	b = protowire.AppendTag(b, 43, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 1)

	got, err := tapRequestFromProto(b)
	require.NoError(t, err)
	assert.Equal(t, "card-t", got.UID)
	assert.Equal(t, "gate-1", got.DeviceID)
}

func TestTapRequestFromProto_Truncated(t *testing.T) {
	b := tapRequestToProto(types.TapRequest{UID: "card-t", DeviceID: "gate-1"})
	_, err := tapRequestFromProto(b[:len(b)-2])
	assert.Error(t, err)
}

func TestTapResultToProto(t *testing.T) {
	points := 10
	expires := time.Date(2026, 10, 19, 8, 2, 0, 0, time.UTC)
	in := types.TapResult{
		Status:        types.TapCommitted,
		Message:       "On time.",
		ServerTime:    "2026-10-19T08:00:00Z",
		EventType:     types.EventPresent,
		TagLogID:      12,
		PointsAwarded: &points,
		TapID:         "t-1",
		PopupType:     types.PopupCheckoutConfirm,
		Candidate:     types.EventCheckout,
		ExpiresAt:     &expires,
		Transport:     &types.TransportAllowance{Eligible: true, Amount: 5000},
	}
	got, err := tapResultFromProto(tapResultToProto(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestHandleTap_Protobuf(t *testing.T) {
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	logs := memory.NewTagLogStore()
	policy := service.Policy{Location: time.UTC}
	ids := service.NewIdentityRegistry(memory.NewIdentityStore(
		types.Identity{UID: "card-u", PersonID: "stf-1", Role: types.RoleStaff},
	), logs)
	tagging := service.NewTaggingService(service.Deps{
		Identities: ids,
		Schedule:   service.NewScheduleLookup(memory.NewScheduleStore(), time.UTC),
		Settings:   service.NewSettingsCache(memory.NewSettingsStore(), time.Second),
		Audit:      service.NewAuditLog(logs, policy),
		Policy:     policy,
		Now:        func() time.Time { return now },
	})
	ts := httptest.NewServer(NewServer(Dependencies{Tagging: tagging, Identities: ids}).Handler())
	defer ts.Close()

	post := func(req types.TapRequest) (int, types.TapResult) {
		resp, err := http.Post(ts.URL+"/v1/taps", protobufContentType, bytes.NewReader(tapRequestToProto(req)))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, protobufContentType, resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		res, err := tapResultFromProto(body)
		require.NoError(t, err, fmt.Sprintf("body %x", body))
		return resp.StatusCode, res
	}

	status, res := post(types.TapRequest{UID: "card-u", DeviceID: "gate-1"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, types.TapCommitted, res.Status)
	assert.Equal(t, types.EventAttendance, res.EventType)
	require.NotNil(t, res.Transport)
	assert.True(t, res.Transport.Eligible)

	status, res = post(types.TapRequest{UID: "card-x", DeviceID: "gate-1"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, types.TapStatus("error"), res.Status)
	assert.Equal(t, "UID_NOT_REGISTERED", res.Reason)
}
