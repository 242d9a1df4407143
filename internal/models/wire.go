package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RawProduct is a product record exactly as the backend sends it. Feature
// and how-to lists are read from the details resource only.
type RawProduct struct {
	ID          FlexID     `json:"id"`
	MongoID     FlexID     `json:"_id"`
	Title       FlexString `json:"title"`
	Subtitle    FlexString `json:"subtitle"`
	Icon        FlexString `json:"icon"`
	Tag         FlexString `json:"tag"`
	Slug        FlexString `json:"slug"`
	Description FlexString `json:"description"`
	VideoURL    FlexString `json:"videoURL"`
	Image       any        `json:"image"`
	DetailsID   FlexInt    `json:"detailsId"`
}

type RawFeature struct {
	ID          FlexID      `json:"id"`
	MongoID     FlexID      `json:"_id"`
	Title       FlexString  `json:"title"`
	Description FlexString  `json:"description"`
	Helps       FlexStrings `json:"helps"`
	Image       any         `json:"image"`
}

type RawHowToStep struct {
	ID          FlexID     `json:"id"`
	MongoID     FlexID     `json:"_id"`
	Title       FlexString `json:"title"`
	Description FlexString `json:"description"`
	Image       any        `json:"image"`
}

// RawDetails is the payload of the details resource.
type RawDetails struct {
	Features FlexList[RawFeature]   `json:"features"`
	HowTo    FlexList[RawHowToStep] `json:"howto"`
}

// Skipped counts the feature and how-to entries that could not be decoded.
func (d RawDetails) Skipped() int {
	return d.Features.Skipped + d.HowTo.Skipped
}

// FlexString keeps JSON strings. Any other value decodes as "".
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = ""
	if len(data) == 0 || data[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	*f = FlexString(s)
	return nil
}

// FlexStrings keeps the string entries of a JSON array. A lone string is
// read as a one-element list; anything else decodes as empty.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = nil
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s FlexString
		_ = s.UnmarshalJSON(data)
		*f = FlexStrings{string(s)}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		out := make(FlexStrings, 0, len(items))
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '"' {
				continue
			}
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				out = append(out, s)
			}
		}
		*f = out
	}
	return nil
}

// FlexList decodes a JSON array entry by entry. Entries that do not decode
// into T are dropped and counted in Skipped; a value that is not an array
// counts as one skipped entry.
type FlexList[T any] struct {
	Items   []T
	Skipped int
}

func (l *FlexList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	l.Items, l.Skipped = nil, 0
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var entries []json.RawMessage
	if data[0] != '[' || json.Unmarshal(data, &entries) != nil {
		l.Skipped = 1
		return nil
	}

	l.Items = make([]T, 0, len(entries))
	for _, entry := range entries {
		var item T
		if err := json.Unmarshal(entry, &item); err != nil {
			l.Skipped++
			continue
		}
		l.Items = append(l.Items, item)
	}
	return nil
}

// FlexID accepts either a JSON string or a JSON number.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// objects, arrays and booleans are not identifiers
		*f = ""
		return nil
	}
	*f = FlexID(n.String())
	return nil
}

// Int returns the identifier as a number, if it is one.
func (f FlexID) Int() (int, bool) {
	if f == "" {
		return 0, false
	}
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0, false
	}
	return n, true
}

// FlexInt accepts a JSON number or a numeric string. Anything else decodes
// as zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var id FlexID
	if err := id.UnmarshalJSON(data); err != nil {
		*f = 0
		return nil
	}
	n, ok := id.Int()
	if !ok {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

var (
	ErrEmptyPayload    = errors.New("empty payload")
	ErrUnexpectedShape = errors.New("unexpected payload shape")
)

// DecodeProductList splits a list response into individual product records.
// Both a bare array and a {"products": [...]} / {"data": [...]} envelope are
// accepted.
func DecodeProductList(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to decode product list: %w", err)
		}
		return items, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode product envelope: %w", err)
		}
		for _, key := range []string{"products", "data"} {
			inner, ok := envelope[key]
			if !ok {
				continue
			}
			return DecodeProductList(inner)
		}
	}

	return nil, fmt.Errorf("%w: expected product array", ErrUnexpectedShape)
}

// DecodeProduct decodes a single product record, unwrapping a
// {"product": {...}} or {"data": {...}} envelope when present.
func DecodeProduct(data []byte) (RawProduct, error) {
	var raw RawProduct

	envelope, err := decodeObject(data)
	if err != nil {
		return raw, err
	}

	if inner, ok := envelope["product"]; ok {
		return DecodeProduct(inner)
	}
	if inner, ok := envelope["data"]; ok && envelope["title"] == nil {
		return DecodeProduct(inner)
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, fmt.Errorf("failed to decode product: %w", err)
	}
	return raw, nil
}

// DecodeDetails decodes the details resource. The payload may be flat or
// nested one level under "details" (or "data").
func DecodeDetails(data []byte) (RawDetails, error) {
	var details RawDetails

	envelope, err := decodeObject(data)
	if err != nil {
		return details, err
	}

	_, hasFeatures := envelope["features"]
	_, hasHowTo := envelope["howto"]
	if !hasFeatures && !hasHowTo {
		for _, key := range []string{"details", "data"} {
			if inner, ok := envelope[key]; ok {
				return DecodeDetails(inner)
			}
		}
	}

	if err := json.Unmarshal(data, &details); err != nil {
		return details, fmt.Errorf("failed to decode details: %w", err)
	}
	return details, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrUnexpectedShape)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}
	return envelope, nil
}
