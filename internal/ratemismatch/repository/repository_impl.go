package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/pkg/db"
)

// mismatchQuery joins one-night bookings on the filtered channels with the
// cheapest refundable and non-refundable rate published for the same room,
// adult count and stay date on the day the booking was created, keeping only
// pairs where the expected price differs from the published rate.
const mismatchQuery = `
WITH rate_updates AS (
	SELECT DISTINCT ON (u.hotel_id, u.date_update::date)
		u.hotel_id,
		u.rate_update_id,
		u.date_update::date AS report_date
	FROM rate_update u
	WHERE u.hotel_id = @hotel_id
		AND u.date_update::date >= @rate_updates_from
		AND u.date_update::date < current_date
	ORDER BY u.hotel_id, u.date_update::date, u.date_update DESC
),
ota_rooms AS (
	SELECT DISTINCT o.ota_room_id, r."name", o.room_id
	FROM ota_room o
	JOIN room r ON r.room_id = o.room_id
	LEFT OUTER JOIN room_category rc ON rc.room_category_id = r.room_category_id
	WHERE o.hotel_id = @hotel_id
),
rate_data AS (
	SELECT
		MIN(CASE WHEN r.refundable THEN r.amount END) AS refundable_rate,
		MIN(CASE WHEN NOT r.refundable THEN r.amount END) AS non_refundable_rate,
		u.hotel_id,
		u.report_date,
		r.stay_date,
		o.name AS room_name,
		r.adultcount
	FROM rate_new r
	JOIN rate_updates u ON r.rate_update_id = u.rate_update_id
	JOIN ota_rooms o ON o.ota_room_id = r.ota_room_id
	GROUP BY u.hotel_id, u.report_date, r.stay_date, o.name, r.adultcount
),
booking AS (
	SELECT
		p.first_name,
		p.last_name,
		b.hotel_id,
		b.room_id,
		b.created_date::date AS created_date,
		b.check_in,
		b.check_out,
		b.cancel_date::date AS cancel_date,
		b.booking_reference,
		EXTRACT(DAY FROM (dt."date" - b.created_date::date)) AS lead_in,
		b.booking_channel_name,
		b.booking_status,
		b.adults,
		b.rate_plan_code,
		b.nights,
		b.room_revenue,
		ROUND(COALESCE(br.total_revenue, b.total_revenue / NULLIF(b.nights, 0)), 2) AS total_revenue_x,
		ROUND(b.total_revenue * 1.2) AS exp_rate,
		b.total_revenue_after_tax,
		h."name" AS hotel_name,
		r."name" AS room_name,
		r.code AS room_code,
		dt."date" AS stay_date
	FROM booking b
	JOIN profile p ON b.profile_id = p.profile_id
	JOIN hotel h ON b.hotel_id = h.hotel_id
	JOIN room r ON b.room_id = r.room_id
	JOIN caldate dt ON b.check_in <= dt."date"
		AND (b.check_out > dt."date" OR (b.check_in = b.check_out AND dt."date" = b.check_in))
	LEFT JOIN booking_rate br ON b.booking_id = br.booking_rate_id
	WHERE b.created_date >= @bookings_from
		AND b.hotel_id = @hotel_id
		AND b.booking_channel_name = ANY(@channels)
		AND b.nights = @nights
		AND b.rate_plan_code = @rate_plan_code
)
SELECT
	b.first_name, b.last_name, b.hotel_id, b.room_id, b.created_date, b.check_in,
	b.check_out, b.cancel_date, b.booking_reference, b.lead_in, b.booking_channel_name,
	b.booking_status, b.adults, b.rate_plan_code, b.nights, b.room_revenue,
	b.total_revenue_x, b.exp_rate, b.total_revenue_after_tax, b.hotel_name,
	b.room_name, b.room_code, b.stay_date,
	r.refundable_rate, r.non_refundable_rate, r.report_date, r.adultcount
FROM booking AS b
JOIN caldate dt ON b.check_in <= dt."date"
	AND (b.check_out > dt."date" OR (b.check_in = b.check_out AND dt."date" = b.check_in))
LEFT JOIN rate_data AS r ON r.adultcount = b.adults
	AND r.room_name = b.room_name
	AND b.created_date = r.report_date
	AND dt.date = r.stay_date
WHERE b.exp_rate <> r.refundable_rate
ORDER BY b.nights ASC`

type repo struct {
	db      *db.SourceDB
	timeout time.Duration
}

func New(source *db.SourceDB, cfg config.Config) domain.Repository {
	timeout := time.Duration(cfg.Source.QueryTimeoutSeconds) * time.Second
	return &repo{db: source, timeout: timeout}
}

// NewFilter builds the query filter from the dashboard settings.
func NewFilter(cfg config.MismatchConfig) (domain.Filter, error) {
	rateFrom, err := time.Parse(time.DateOnly, cfg.RateUpdatesFrom)
	if err != nil {
		return domain.Filter{}, fmt.Errorf("invalid rateUpdatesFrom %q: %w", cfg.RateUpdatesFrom, err)
	}
	bookingsFrom, err := time.Parse(time.DateOnly, cfg.BookingsFrom)
	if err != nil {
		return domain.Filter{}, fmt.Errorf("invalid bookingsFrom %q: %w", cfg.BookingsFrom, err)
	}
	return domain.Filter{
		HotelID:         cfg.HotelID,
		RateUpdatesFrom: rateFrom,
		BookingsFrom:    bookingsFrom,
		Channels:        append([]string(nil), cfg.Channels...),
		RatePlanCode:    cfg.RatePlanCode,
		Nights:          cfg.Nights,
	}, nil
}

func (r *repo) FetchMismatches(ctx context.Context, filter domain.Filter) ([]domain.Record, error) {
	if r.db == nil || r.db.DB == nil {
		return nil, fmt.Errorf("%w: source database not configured", domain.ErrSourceUnavailable)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var records []domain.Record
	err := r.db.WithContext(ctx).Raw(mismatchQuery, map[string]any{
		"hotel_id":          filter.HotelID,
		"rate_updates_from": filter.RateUpdatesFrom.Format(time.DateOnly),
		"bookings_from":     filter.BookingsFrom.Format(time.DateOnly),
		"channels":          pq.Array(filter.Channels),
		"nights":            filter.Nights,
		"rate_plan_code":    filter.RatePlanCode,
	}).Scan(&records).Error
	if err != nil {
		if db.IsConnectionError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	return records, nil
}
