package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"voip-router/internal/models"
)

var weekdayKeys = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func decodeBusinessHours(raw []byte) (map[time.Weekday]models.DaySchedule, error) {
	out := make(map[time.Weekday]models.DaySchedule)
	if len(raw) == 0 {
		return out, nil
	}
	var byName map[string]models.DaySchedule
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("%w: business_hours: %v", models.ErrConfigInvalid, err)
	}
	for name, day := range byName {
		wd, ok := weekdayKeys[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: business_hours: unknown day %q", models.ErrConfigInvalid, name)
		}
		out[wd] = day
	}
	return out, nil
}

// decodeJSON reports any malformed JSONB column as ErrConfigInvalid.
func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		if errors.Is(err, models.ErrConfigInvalid) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrConfigInvalid, err)
	}
	return nil
}

func (p *Postgres) TimeConditionByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TimeCondition, error) {
	var tc models.TimeCondition
	var hours, holidays []byte
	var bhType, bhDest, ahType, ahDest, hType, hDest string
	err := p.db.QueryRow(ctx, `
        SELECT id, tenant_id, name, COALESCE(timezone, ''),
               business_hours, holidays,
               business_hours_action, COALESCE(business_hours_destination, ''),
               after_hours_action, COALESCE(after_hours_destination, ''),
               holiday_action, COALESCE(holiday_destination, ''),
               enabled
        FROM voip.time_conditions
        WHERE tenant_id = $1
          AND id = $2
    `, tenantID, id).Scan(
		&tc.ID, &tc.TenantID, &tc.Name, &tc.Timezone,
		&hours, &holidays,
		&bhType, &bhDest,
		&ahType, &ahDest,
		&hType, &hDest,
		&tc.Enabled,
	)
	if err != nil {
		return nil, lookupErr("time condition by id", err)
	}

	if tc.BusinessHours, err = decodeBusinessHours(hours); err != nil {
		return nil, lookupErr("time condition hours", err)
	}
	if err := decodeJSON(holidays, &tc.Holidays); err != nil {
		return nil, lookupErr("time condition holidays", err)
	}
	if tc.BusinessHoursAction, err = models.ParseAction(bhType, bhDest); err != nil {
		return nil, lookupErr("time condition business action", err)
	}
	if tc.AfterHoursAction, err = models.ParseAction(ahType, ahDest); err != nil {
		return nil, lookupErr("time condition after hours action", err)
	}
	if tc.HolidayAction, err = models.ParseAction(hType, hDest); err != nil {
		return nil, lookupErr("time condition holiday action", err)
	}
	return &tc, nil
}

func (p *Postgres) IvrMenuByExtension(ctx context.Context, tenantID uuid.UUID, extension string) (*models.IvrMenu, error) {
	var m models.IvrMenu
	var options, timeoutAction, invalidAction []byte
	err := p.db.QueryRow(ctx, `
        SELECT id, tenant_id, name, extension,
               COALESCE(greeting_sound, ''), COALESCE(invalid_sound, ''), COALESCE(exit_sound, ''),
               timeout, max_failures,
               options, timeout_action, invalid_action,
               enabled
        FROM voip.ivr_menus
        WHERE tenant_id = $1
          AND extension = $2
          AND enabled = TRUE
        LIMIT 1
    `, tenantID, extension).Scan(
		&m.ID, &m.TenantID, &m.Name, &m.Extension,
		&m.GreetingSound, &m.InvalidSound, &m.ExitSound,
		&m.Timeout, &m.MaxFailures,
		&options, &timeoutAction, &invalidAction,
		&m.Enabled,
	)
	if err != nil {
		return nil, lookupErr("ivr menu by extension", err)
	}

	m.Options = make(map[string]models.Action)
	if err := decodeJSON(options, &m.Options); err != nil {
		return nil, lookupErr("ivr menu options", err)
	}
	if err := decodeJSON(timeoutAction, &m.TimeoutAction); err != nil {
		return nil, lookupErr("ivr menu timeout action", err)
	}
	if err := decodeJSON(invalidAction, &m.InvalidAction); err != nil {
		return nil, lookupErr("ivr menu invalid action", err)
	}
	return &m, nil
}
