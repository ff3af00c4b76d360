package httpapi

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// Field numbers of TapRequest and TapResult. The schema lives in
// proto/tagbook/v1/tap.proto at the repository root; readers compile it and
// the server encodes by hand. schema_test.go keeps the two in step.
const (
	tapReqUID        protowire.Number = 1
	tapReqDeviceID   protowire.Number = 2
	tapReqDeviceType protowire.Number = 3
	tapReqOccurredAt protowire.Number = 4
	tapReqClientMeta protowire.Number = 5

	mapKey   protowire.Number = 1
	mapValue protowire.Number = 2

	tapResStatus            protowire.Number = 1
	tapResMessage           protowire.Number = 2
	tapResDisplayName       protowire.Number = 3
	tapResServerTime        protowire.Number = 4
	tapResEventType         protowire.Number = 5
	tapResTagLogID          protowire.Number = 6
	tapResPointsAwarded     protowire.Number = 7
	tapResReason            protowire.Number = 8
	tapResTapID             protowire.Number = 9
	tapResPopupType         protowire.Number = 10
	tapResCandidate         protowire.Number = 11
	tapResExpiresAt         protowire.Number = 12
	tapResTransportEligible protowire.Number = 13
	tapResTransportAmount   protowire.Number = 14
)

// ── TapRequest ───────────────────────────────────────────────────────────────

func tapRequestFromProto(b []byte) (types.TapRequest, error) {
	var req types.TapRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return types.TapRequest{}, protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return types.TapRequest{}, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return types.TapRequest{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch num {
		case tapReqUID:
			req.UID = string(v)
		case tapReqDeviceID:
			req.DeviceID = string(v)
		case tapReqDeviceType:
			req.DeviceType = string(v)
		case tapReqOccurredAt:
			req.OccurredAt = string(v)
		case tapReqClientMeta:
			k, val, err := mapEntryFromProto(v)
			if err != nil {
				return types.TapRequest{}, fmt.Errorf("client_meta: %w", err)
			}
			if req.ClientMeta == nil {
				req.ClientMeta = make(map[string]string)
			}
			req.ClientMeta[k] = val
		}
	}
	return req, nil
}

func mapEntryFromProto(b []byte) (string, string, error) {
	var key, val string
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", "", protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.BytesType || (num != mapKey && num != mapValue) {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", "", protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return "", "", protowire.ParseError(n)
		}
		b = b[n:]
		if num == mapKey {
			key = string(v)
		} else {
			val = string(v)
		}
	}
	return key, val, nil
}

// ── TapResult ────────────────────────────────────────────────────────────────

func tapResultToProto(r types.TapResult) []byte {
	var b []byte
	b = appendString(b, tapResStatus, string(r.Status))
	b = appendString(b, tapResMessage, r.Message)
	b = appendString(b, tapResDisplayName, r.DisplayName)
	b = appendString(b, tapResServerTime, r.ServerTime)
	b = appendString(b, tapResEventType, string(r.EventType))
	if r.TagLogID != 0 {
		b = protowire.AppendTag(b, tapResTagLogID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.TagLogID))
	}
	if r.PointsAwarded != nil {
		b = protowire.AppendTag(b, tapResPointsAwarded, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(*r.PointsAwarded)))
	}
	b = appendString(b, tapResReason, r.Reason)
	b = appendString(b, tapResTapID, r.TapID)
	b = appendString(b, tapResPopupType, string(r.PopupType))
	b = appendString(b, tapResCandidate, string(r.Candidate))
	if r.ExpiresAt != nil {
		b = appendString(b, tapResExpiresAt, r.ExpiresAt.UTC().Format(time.RFC3339Nano))
	}
	if r.Transport != nil {
		b = protowire.AppendTag(b, tapResTransportEligible, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(r.Transport.Eligible))
		b = protowire.AppendTag(b, tapResTransportAmount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Transport.Amount))
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
