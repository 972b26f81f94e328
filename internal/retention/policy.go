package retention

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	DefaultRetentionDays = 30
	MinRetentionDays     = 7
	MaxRetentionDays     = 365
)

// Source tells where a resolved retention period came from.
type Source int

const (
	// SourceDefault means the trigger did not carry a usable value.
	SourceDefault Source = iota
	// SourceMessage means retention_days was taken from the trigger.
	SourceMessage
)

func (s Source) String() string {
	if s == SourceMessage {
		return "message"
	}
	return "default"
}

// Resolution is the outcome of Resolve. Days is always within
// [MinRetentionDays, MaxRetentionDays]. Reason explains a default.
type Resolution struct {
	Days   int
	Source Source
	Reason string
}

// UseDefault builds a default resolution.
func UseDefault(reason string) Resolution {
	return Resolution{Days: DefaultRetentionDays, Source: SourceDefault, Reason: reason}
}

// FromDays validates an explicit value the way a trigger value would be.
func FromDays(days int) Resolution {
	if reason := checkRange(int64(days)); reason != "" {
		return UseDefault(reason)
	}
	return Resolution{Days: days, Source: SourceMessage}
}

type pubsubEnvelope struct {
	Message *struct {
		Data string `json:"data"`
	} `json:"message"`
}

// Resolve extracts retention_days from a push-style trigger body
// {"message":{"data":"<base64 JSON>"}}. It never fails: anything missing
// resolves to the default at INFO, anything malformed or out of range
// resolves to the default at WARN.
func Resolve(payload []byte, log *zap.Logger) Resolution {
	if log == nil {
		log = zap.NewNop()
	}

	res, invalid := resolve(payload)
	switch {
	case res.Source == SourceMessage:
		log.Info("using retention period from message", zap.Int("retention_days", res.Days))
	case invalid:
		log.Warn("invalid retention configuration, using default",
			zap.String("reason", res.Reason),
			zap.Int("retention_days", res.Days),
		)
	default:
		log.Info("no retention configuration, using default",
			zap.String("reason", res.Reason),
			zap.Int("retention_days", res.Days),
		)
	}
	return res
}

// resolve reports invalid=true when the trigger carried something unusable,
// as opposed to carrying nothing.
func resolve(payload []byte) (Resolution, bool) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return UseDefault("no message data"), false
	}

	var env pubsubEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return UseDefault(fmt.Sprintf("malformed envelope: %v", err)), true
	}
	if env.Message == nil || env.Message.Data == "" {
		return UseDefault("no message data"), false
	}

	body, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return UseDefault(fmt.Sprintf("message data is not base64: %v", err)), true
	}
	if !utf8.Valid(body) {
		return UseDefault("message data is not valid UTF-8"), true
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return UseDefault(fmt.Sprintf("failed to parse JSON message: %v", err)), true
	}

	raw, ok := fields["retention_days"]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return UseDefault("no retention_days specified"), false
	}

	days, reason := parseDays(raw)
	if reason != "" {
		return UseDefault(reason), true
	}
	return Resolution{Days: int(days), Source: SourceMessage}, false
}

// parseDays applies the checks in order: integer type, lower bound, upper bound.
func parseDays(raw json.RawMessage) (int64, string) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Sprintf("retention_days is not valid JSON: %v", err)
	}

	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Sprintf("retention_days must be integer, got %s", jsonKind(v))
	}
	lit := num.String()
	if strings.ContainsAny(lit, ".eE") {
		return 0, "retention_days must be integer, got float"
	}

	days, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		if !errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Sprintf("retention_days must be integer: %v", err)
		}
		// Out of int64 range: the sign decides which bound it violates.
		if strings.HasPrefix(lit, "-") {
			return 0, fmt.Sprintf("retention_days %s below minimum %d", lit, MinRetentionDays)
		}
		return 0, fmt.Sprintf("retention_days %s exceeds maximum %d", lit, MaxRetentionDays)
	}

	if reason := checkRange(days); reason != "" {
		return 0, reason
	}
	return days, ""
}

func checkRange(days int64) string {
	if days < MinRetentionDays {
		return fmt.Sprintf("retention_days %d below minimum %d", days, MinRetentionDays)
	}
	if days > MaxRetentionDays {
		return fmt.Sprintf("retention_days %d exceeds maximum %d", days, MaxRetentionDays)
	}
	return ""
}

func jsonKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
