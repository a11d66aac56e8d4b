package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a tenant, extension, menu or section cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrConfigInvalid is returned when a persisted row fails validation at read time.
	ErrConfigInvalid = errors.New("invalid configuration")
)

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusPending   TenantStatus = "pending"
)

type Tenant struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Slug      string       `db:"slug" json:"slug"`
	Domain    string       `db:"sip_domain" json:"sip_domain"`
	Status    TenantStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == TenantStatusActive
}

type ExtensionStatus string

const (
	ExtensionStatusActive   ExtensionStatus = "active"
	ExtensionStatusInactive ExtensionStatus = "inactive"
	ExtensionStatusLocked   ExtensionStatus = "locked"
)

type Extension struct {
	ID          uuid.UUID       `db:"id"`
	TenantID    uuid.UUID       `db:"tenant_id"`
	Number      string          `db:"extension"`
	Secret      string          `db:"password"`
	DisplayName string          `db:"display_name"`
	Status      ExtensionStatus `db:"status"`
}

// CallerIDName falls back to the extension number when no display name is set.
func (e *Extension) CallerIDName() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Number
}

type Failover struct {
	Enabled     bool
	Destination Action
}

type InboundRoute struct {
	ID              uuid.UUID  `db:"id"`
	TenantID        uuid.UUID  `db:"tenant_id"`
	Name            string     `db:"name"`
	DIDNumber       string     `db:"did_number"`
	Destination     Action     `db:"-"`
	TimeConditionID *uuid.UUID `db:"time_condition_id"`
	Failover        Failover   `db:"-"`
	Enabled         bool       `db:"enabled"`
}

type OutboundRoute struct {
	ID              uuid.UUID  `db:"id"`
	TenantID        uuid.UUID  `db:"tenant_id"`
	Name            string     `db:"name"`
	DialPattern     string     `db:"dial_pattern"`
	Priority        int        `db:"priority"`
	StripDigits     int        `db:"strip_digits"`
	Prefix          string     `db:"prefix"`
	AddDigits       string     `db:"add_digits"`
	TrunkID         uuid.UUID  `db:"trunk_id"`
	FailoverTrunkID *uuid.UUID `db:"failover_trunk_id"`
	Enabled         bool       `db:"enabled"`
	CreatedAt       time.Time  `db:"created_at"`
}

type Trunk struct {
	ID          uuid.UUID `db:"id"`
	TenantID    uuid.UUID `db:"tenant_id"`
	Name        string    `db:"name"`
	GatewayName string    `db:"gateway_name"`
	Enabled     bool      `db:"enabled"`
	Healthy     bool      `db:"healthy"`
}

// Gateway is the sofia gateway the switch knows this trunk by.
func (t *Trunk) Gateway() string {
	if t.GatewayName != "" {
		return t.GatewayName
	}
	return "trunk_" + t.ID.String()
}

// Usable reports whether the trunk may carry a new call attempt.
func (t *Trunk) Usable() bool {
	return t != nil && t.Enabled && t.Healthy
}

type DaySchedule struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Holiday struct {
	Date    string `json:"date"`
	Name    string `json:"name,omitempty"`
	Enabled bool   `json:"enabled"`
}

type TimeCondition struct {
	ID                  uuid.UUID                    `db:"id"`
	TenantID            uuid.UUID                    `db:"tenant_id"`
	Name                string                       `db:"name"`
	Timezone            string                       `db:"timezone"`
	BusinessHours       map[time.Weekday]DaySchedule `db:"-"`
	Holidays            []Holiday                    `db:"-"`
	BusinessHoursAction Action                       `db:"-"`
	AfterHoursAction    Action                       `db:"-"`
	HolidayAction       Action                       `db:"-"`
	Enabled             bool                         `db:"enabled"`
}

type IvrMenu struct {
	ID            uuid.UUID         `db:"id"`
	TenantID      uuid.UUID         `db:"tenant_id"`
	Name          string            `db:"name"`
	Extension     string            `db:"extension"`
	GreetingSound string            `db:"greeting_sound"`
	InvalidSound  string            `db:"invalid_sound"`
	ExitSound     string            `db:"exit_sound"`
	Timeout       int               `db:"timeout"`
	MaxFailures   int               `db:"max_failures"`
	Options       map[string]Action `db:"-"`
	TimeoutAction Action            `db:"-"`
	InvalidAction Action            `db:"-"`
	Enabled       bool              `db:"enabled"`
}
