// Package userdata holds the user data screen: the profile records it shows,
// the bridge messages it exchanges with the host and the reducer that turns
// those messages into screen state.
package userdata

import (
	"bytes"
	"encoding/json"
	"slices"
)

// RemoteProfile is the identity platform's view of the user. It is read-only
// from the screen's point of view.
type RemoteProfile struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

// AppProfile is the application-owned profile, edited on the screen and
// persisted through the host.
type AppProfile struct {
	FavoriteColor string   `json:"favoriteColor"`
	Weapons       []string `json:"weapons"`
}

// Clone returns a copy that shares no memory with p.
func (p AppProfile) Clone() AppProfile {
	p.Weapons = slices.Clone(p.Weapons)
	return p
}

// WithFavoriteColor returns a copy of p with only the favorite color changed.
func (p AppProfile) WithFavoriteColor(color string) AppProfile {
	c := p.Clone()
	c.FavoriteColor = color
	return c
}

// Optional marks a payload field whose absence is meaningful. Present is set
// whenever the field appears in the JSON, including an explicit null.
type Optional[T any] struct {
	Value   *T
	Present bool
}

// Some wraps v as a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: &v, Present: true}
}

// Get returns the value and whether it is present and non-null.
func (o Optional[T]) Get() (T, bool) {
	if !o.Present || o.Value == nil {
		var zero T
		return zero, false
	}
	return *o.Value, true
}

// IsZero lets `omitzero` drop absent fields when marshaling.
func (o Optional[T]) IsZero() bool {
	return !o.Present
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
