// Package domain defines Atlas's core value types: the Context partition
// key, UI states and their interactive elements, and the transitions
// (user actions) that connect states within a context.
package domain

import (
	"encoding/json"
	"fmt"
)

// Platform identifies the UI runtime a Context/UIState was captured from.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformAndroid Platform = "android"
	PlatformMacOS   Platform = "macos"
	PlatformOther   Platform = "other"
)

// Valid reports whether p is one of the known Platform values, or empty
// (platform is optional throughout the domain model).
func (p Platform) Valid() bool {
	switch p {
	case "", PlatformWeb, PlatformWindows, PlatformLinux, PlatformAndroid, PlatformMacOS, PlatformOther:
		return true
	}
	return false
}

// Context is the immutable-by-convention partition key grouping a graph
// of UI states for one application/version/platform/locale.
type Context struct {
	ContextID   string                 `json:"context_id"`
	AppID       string                 `json:"app_id"`
	Version     string                 `json:"version,omitempty"`
	Platform    Platform               `json:"platform,omitempty"`
	Locale      string                 `json:"locale,omitempty"`
	SchemaVersion string               `json:"schema_version,omitempty"`
	CreatedAt   string                 `json:"created_at,omitempty"`
	Environment map[string]interface{} `json:"environment,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

var contextKnownFields = map[string]struct{}{
	"context_id": {}, "app_id": {}, "version": {}, "platform": {},
	"locale": {}, "schema_version": {}, "created_at": {}, "environment": {},
	"metadata": {},
}

// UnmarshalJSON decodes a Context, folding any top-level field not named
// above into Metadata instead of dropping it. See unknownFields.
func (c *Context) UnmarshalJSON(data []byte) error {
	type alias Context
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, contextKnownFields)
	if err != nil {
		return err
	}
	*c = Context(a)
	c.Metadata = mergeMetadata(c.Metadata, extra)
	return nil
}

// Validate enforces the invariants a Context must hold before it can be
// stored: a non-empty id and app id, and a recognized platform.
func (c Context) Validate() error {
	if c.ContextID == "" {
		return fmt.Errorf("domain: context_id is required")
	}
	if c.AppID == "" {
		return fmt.Errorf("domain: app_id is required")
	}
	if !c.Platform.Valid() {
		return fmt.Errorf("domain: unrecognized platform %q", c.Platform)
	}
	return nil
}

// BoundingBox is the screen-space rectangle of an InteractiveElement.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate enforces that all BoundingBox fields are non-negative.
func (b BoundingBox) Validate() error {
	if b.X < 0 || b.Y < 0 || b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("domain: bounding box fields must be non-negative")
	}
	return nil
}

// InteractiveElement is one actionable element observed within a UIState.
type InteractiveElement struct {
	ID       string                 `json:"id"`
	Role     string                 `json:"role"`
	Label    string                 `json:"label,omitempty"`
	Box      *BoundingBox           `json:"box,omitempty"`
	Path     string                 `json:"path,omitempty"`
	Enabled  bool                   `json:"enabled"`
	Visible  bool                   `json:"visible"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Validate enforces that an element carries an id and, when present, a
// valid bounding box.
func (e InteractiveElement) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("domain: interactive element id is required")
	}
	if e.Box != nil {
		if err := e.Box.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UIState is a distinct screen configuration of the application,
// identified by one or more fingerprints.
type UIState struct {
	ID           string                 `json:"id"`
	AppID        string                 `json:"app_id"`
	Version      string                 `json:"version,omitempty"`
	Platform     Platform               `json:"platform,omitempty"`
	Locale       string                 `json:"locale,omitempty"`
	Fingerprints map[string]string      `json:"fingerprints,omitempty"`
	ScreenshotRef string                `json:"screenshot_ref,omitempty"`
	Elements     []InteractiveElement   `json:"elements,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Well-known fingerprint keys, in the order statetracker.Tracker
// prefers them by default.
const (
	FingerprintStructural = "structural"
	FingerprintVisual     = "visual"
	FingerprintSemantic   = "semantic"
)

var uiStateKnownFields = map[string]struct{}{
	"id": {}, "app_id": {}, "version": {}, "platform": {}, "locale": {},
	"fingerprints": {}, "screenshot_ref": {}, "elements": {}, "metadata": {},
}

// UnmarshalJSON decodes a UIState, folding any top-level field not named
// above into Metadata instead of dropping it. See unknownFields.
func (s *UIState) UnmarshalJSON(data []byte) error {
	type alias UIState
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, uiStateKnownFields)
	if err != nil {
		return err
	}
	*s = UIState(a)
	s.Metadata = mergeMetadata(s.Metadata, extra)
	return nil
}

// Validate enforces that a UIState carries an id, app id, and valid
// elements.
func (s UIState) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("domain: ui state id is required")
	}
	if s.AppID == "" {
		return fmt.Errorf("domain: app_id is required")
	}
	if !s.Platform.Valid() {
		return fmt.Errorf("domain: unrecognized platform %q", s.Platform)
	}
	for _, el := range s.Elements {
		if err := el.Validate(); err != nil {
			return err
		}
	}
	return nil
}
