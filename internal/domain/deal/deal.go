package deal

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingDealID signals a payload whose resolved deal carries no identifier.
	ErrMissingDealID = errors.New("deal: missing deal identifier")
)

// Recognized Bitrix deal field codes. Inbound payloads may spell them in either
// upper-snake or lower-snake; normalization upper-cases every key.
const (
	FieldID             = "ID"
	FieldShopifyOrderID = "UF_SHOPIFY_ORDER_ID"
	FieldStageID        = "STAGE_ID"
	FieldOpportunity    = "OPPORTUNITY"
)

// Record is the canonical, fixed-case view of a Bitrix deal. It exists only for
// the duration of one webhook invocation.
type Record struct {
	ID             string
	ShopifyOrderID string
	StageID        string
	// Amount is the deal opportunity value; unparsable or absent values
	// normalize to zero.
	Amount decimal.Decimal

	fields map[string]string
}

// newRecord builds a Record from a raw field map. Keys are upper-cased so that
// lower-snake payload variants resolve to the same canonical fields.
func newRecord(raw map[string]any) (Record, error) {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := stringify(v)
		if !ok {
			continue
		}
		fields[strings.ToUpper(k)] = s
	}

	id := fields[FieldID]
	if id == "" {
		return Record{}, ErrMissingDealID
	}

	amount := decimal.Zero
	if raw := fields[FieldOpportunity]; raw != "" {
		if d, err := decimal.NewFromString(raw); err == nil {
			amount = d
		}
	}

	return Record{
		ID:             id,
		ShopifyOrderID: fields[FieldShopifyOrderID],
		StageID:        fields[FieldStageID],
		Amount:         amount,
		fields:         fields,
	}, nil
}

// Field returns the raw value of a deal field by its Bitrix code, accepting
// either case variant of the code.
func (r Record) Field(code string) string {
	return r.fields[strings.ToUpper(code)]
}

// stringify flattens scalar JSON values into their string form. Non-scalar
// values (objects, arrays, null) are not deal fields and are dropped.
func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// StageSet is a membership set of CRM stage codes.
type StageSet map[string]struct{}

// NewStageSet builds a StageSet from a list of stage codes.
func NewStageSet(stages []string) StageSet {
	set := make(StageSet, len(stages))
	for _, s := range stages {
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// Contains reports whether the stage code is a member of the set.
func (s StageSet) Contains(stage string) bool {
	_, ok := s[stage]
	return ok
}
