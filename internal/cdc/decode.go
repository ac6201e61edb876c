// Package cdc turns change-data-capture messages about items into
// leaderboard cache updates.
//
// A message is optional transport framing followed by a JSON envelope,
// {"u": image} for an insert or update (post-image) or {"d": image} for a
// delete (pre-image). Every image field is wrapped as {"<name>": {"v": value}}
// and timestamps use "2006-01-02 15:04:05" without a zone.
package cdc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/hotitems/internal/domain/model"
)

// TimestampLayout is the wire format of created_at and updated_at.
const TimestampLayout = "2006-01-02 15:04:05"

// Envelope keys.
const (
	envelopeUpsert = "u"
	envelopeDelete = "d"
)

type image map[string]json.RawMessage

// Clean strips any framing before the first '{'. It returns nil when the
// payload holds no object.
func Clean(payload []byte) []byte {
	i := bytes.IndexByte(payload, '{')
	if i < 0 {
		return nil
	}
	return payload[i:]
}

// Decode parses a raw message. Naive timestamps are read in loc.
func Decode(payload []byte, loc *time.Location) (model.ChangeEvent, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return model.ChangeEvent{}, ErrEmptyPayload
	}
	body := Clean(payload)
	if body == nil {
		return model.ChangeEvent{}, ErrNoObject
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return model.ChangeEvent{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var (
		kind model.ChangeKind
		raw  json.RawMessage
	)
	if r, ok := envelope[envelopeUpsert]; ok {
		kind, raw = model.ChangeUpsert, r
	} else if r, ok := envelope[envelopeDelete]; ok {
		kind, raw = model.ChangeDelete, r
	} else {
		return model.ChangeEvent{}, ErrUnknownEnvelope
	}

	var img image
	if err := json.Unmarshal(raw, &img); err != nil || img == nil {
		return model.ChangeEvent{}, fmt.Errorf("%w: %s image is not an object", ErrMalformedField, kind)
	}

	id, err := img.id()
	if err != nil {
		return model.ChangeEvent{}, err
	}
	if kind == model.ChangeDelete {
		return model.ChangeEvent{Kind: kind, Item: model.Item{ID: id}}, nil
	}

	item, err := img.item(id, loc)
	if err != nil {
		return model.ChangeEvent{}, err
	}
	return model.ChangeEvent{Kind: kind, Item: item}, nil
}

func (img image) item(id string, loc *time.Location) (model.Item, error) {
	item := model.Item{ID: id}
	var err error
	if item.Content, err = img.str("content"); err != nil {
		return model.Item{}, err
	}
	if item.OwnerID, err = img.str("user_id"); err != nil {
		return model.Item{}, err
	}
	if item.Likes, err = img.int64("likes"); err != nil {
		return model.Item{}, err
	}
	if item.Likes < 0 {
		return model.Item{}, fmt.Errorf("%w: likes is negative", ErrMalformedField)
	}
	if item.Version, err = img.int64("version"); err != nil {
		return model.Item{}, err
	}
	if item.CreatedAt, err = img.timestamp("created_at", loc); err != nil {
		return model.Item{}, err
	}
	if item.UpdatedAt, err = img.timestamp("updated_at", loc); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// value unwraps {"v": ...} for name. Missing fields and nulls are malformed.
func (img image) value(name string) (json.RawMessage, error) {
	wrapped, ok := img[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s is missing", ErrMalformedField, name)
	}
	var cell map[string]json.RawMessage
	if err := json.Unmarshal(wrapped, &cell); err != nil || cell == nil {
		return nil, fmt.Errorf("%w: %s is not a value cell", ErrMalformedField, name)
	}
	v, ok := cell["v"]
	if !ok || string(bytes.TrimSpace(v)) == "null" {
		return nil, fmt.Errorf("%w: %s has no value", ErrMalformedField, name)
	}
	return v, nil
}

func (img image) str(name string) (string, error) {
	v, err := img.value(name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedField, name)
	}
	return s, nil
}

func (img image) number(name string) (json.Number, error) {
	v, err := img.value(name)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("%w: %s is not a number", ErrMalformedField, name)
	}
	return n, nil
}

func (img image) int64(name string) (int64, error) {
	n, err := img.number(name)
	if err != nil {
		return 0, err
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrMalformedField, name)
	}
	return i, nil
}

// id accepts a string or an integer, the latter rendered in base 10.
func (img image) id() (string, error) {
	v, err := img.value("id")
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("%w: id is empty", ErrMalformedField)
		}
		return s, nil
	}
	n, err := img.int64("id")
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

func (img image) timestamp(name string, loc *time.Location) (time.Time, error) {
	s, err := img.str(name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(TimestampLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q is not %s", ErrMalformedField, name, s, TimestampLayout)
	}
	return t.UTC(), nil
}
