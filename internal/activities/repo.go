package activities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andrewwb/trainsight/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrActivityNotFound = errors.New("activity not found")

// ActivityParams filter listing queries. Nil/empty fields skip the
// corresponding filter.
type ActivityParams struct {
	SportTypes []string
	From       *time.Time
	To         *time.Time
}

type ListParams struct {
	ActivityParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, activity Activity) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	createdAt := activity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO activity
				(strava_id, name, sport_type, start_date, elapsed_time_secs, moving_time_secs,
				distance, average_heart_rate, max_heart_rate, manual, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id;`,
		activity.StravaID, activity.Name, activity.SportType, activity.StartDate,
		int(activity.ElapsedTime.Seconds()), int(activity.MovingTime.Seconds()),
		activity.Distance, activity.AverageHeartRate, activity.MaxHeartRate,
		activity.Manual, createdAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("activity.id", id))

	activity.ID = id
	activity.CreatedAt = createdAt
	return &activity, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT
			id, strava_id, name, sport_type, start_date, elapsed_time_secs, moving_time_secs,
			distance, average_heart_rate, max_heart_rate, manual, created_at
		FROM activity
		WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	activities, err := rows2activities(rows)
	if err != nil {
		return nil, err
	}

	if len(activities) != 1 {
		return nil, ErrActivityNotFound
	}

	return &activities[0], nil
}

// ListAll returns all activities matching the given filters, newest first.
func (r *Repo) ListAll(ctx context.Context, params ActivityParams) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.StringSlice("sport_types", params.SportTypes))
	if params.From != nil {
		span.SetAttributes(attribute.String("from", params.From.String()))
	}
	if params.To != nil {
		span.SetAttributes(attribute.String("to", params.To.String()))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT
			id, strava_id, name, sport_type, start_date, elapsed_time_secs, moving_time_secs,
			distance, average_heart_rate, max_heart_rate, manual, created_at
		FROM activity
			WHERE (cardinality($1::text[]) = 0 OR sport_type = ANY($1))
			AND ($2::timestamp IS NULL OR start_date >= $2)
			AND ($3::timestamp IS NULL OR start_date <= $3)
		ORDER BY start_date DESC;`,
		params.SportTypes, params.From, params.To,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	activities, err := rows2activities(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2activities: %w", err)
	}
	return activities, nil
}

// List returns one page of activities matching the filters, newest
// first, plus the total match count.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Activity, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size
	countAll, err := r.Count(ctx, params.ActivityParams)
	if err != nil {
		return nil, -1, err
	}

	if countAll <= limit {
		limit = countAll
		offset = 0
	}

	if countAll-offset < limit {
		offset = countAll - limit
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT
			id, strava_id, name, sport_type, start_date, elapsed_time_secs, moving_time_secs,
			distance, average_heart_rate, max_heart_rate, manual, created_at
		FROM activity
			WHERE (cardinality($1::text[]) = 0 OR sport_type = ANY($1))
			AND ($2::timestamp IS NULL OR start_date >= $2)
			AND ($3::timestamp IS NULL OR start_date <= $3)
		ORDER BY start_date DESC
		LIMIT $4
		OFFSET $5;`,
		params.SportTypes, params.From, params.To,
		limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	activities, err := rows2activities(rows)
	if err != nil {
		return nil, -1, err
	}
	return activities, countAll, nil
}

func (r *Repo) Count(ctx context.Context, params ActivityParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT COUNT(*) FROM activity
			WHERE (cardinality($1::text[]) = 0 OR sport_type = ANY($1))
			AND ($2::timestamp IS NULL OR start_date >= $2)
			AND ($3::timestamp IS NULL OR start_date <= $3);`,
		params.SportTypes, params.From, params.To,
	)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get activities count")
}

// LastStartTime returns the start time of the newest stored activity,
// or the zero time when the table is empty.
func (r *Repo) LastStartTime(ctx context.Context) (startDate time.Time, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.lastStartTime")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var nullStartDate sql.NullTime
	row := r.db.QueryRow(ctx, `
		SELECT MAX(start_date) FROM activity
	`)

	if err := row.Scan(&nullStartDate); err != nil {
		return time.Time{}, fmt.Errorf("scan row: %w", err)
	}

	if nullStartDate.Valid {
		return nullStartDate.Time, nil
	}

	return time.Time{}, nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM activity WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func rows2activities(rows pgx.Rows) ([]Activity, error) {
	var activities []Activity
	for rows.Next() {
		var a Activity
		var elapsedSecs, movingSecs int
		if err := rows.Scan(
			&a.ID, &a.StravaID, &a.Name, &a.SportType, &a.StartDate, &elapsedSecs, &movingSecs,
			&a.Distance, &a.AverageHeartRate, &a.MaxHeartRate, &a.Manual, &a.CreatedAt,
		); err != nil {
			return nil, err
		}

		a.ElapsedTime = time.Duration(elapsedSecs) * time.Second
		a.MovingTime = time.Duration(movingSecs) * time.Second
		activities = append(activities, a)
	}

	if activities == nil {
		activities = make([]Activity, 0)
	}

	return activities, nil
}
