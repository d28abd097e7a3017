// Package gradestore keeps daily snapshots of gradebook records.
package gradestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/chrono"
	"skyward-backend/lib/skyward/gradebook"
	"skyward-backend/lib/telemetry"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mazen160/go-random"
)

const (
	report_db_query = "db.query"
	report_push     = "push"
)

const batchIdLength = 12

type Store struct {
	db     *sql.DB
	makeTx MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
}

func NewStore(database *sql.DB, time chrono.TimeAPI, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Store{
		db:     database,
		makeTx: NewMakeTx(database),
		time:   time,
		tel:    telemetry.NewScopedAPI("gradestore", tel),
	}
}

type PushRequest struct {
	// Time defaults to now.
	Time   time.Time
	User   string
	Record gradebook.CourseRecord
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s Store) exec(ctx context.Context, q querier, name string, builder sq.Sqlizer) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, name)
	}
	return err
}

func (s Store) userCourseId(ctx context.Context, q querier, user, course string) (int64, error) {
	err := s.exec(ctx, q, "CreateUserCourse", sq.Insert("user_course").
		Columns("user_id", "course").
		Values(user, course).
		Suffix("on conflict (user_id, course) do nothing"))
	if err != nil {
		return 0, err
	}

	query, args, err := sq.Select("id").
		From("user_course").
		Where(sq.Eq{"user_id": user, "course": course}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	err = q.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetUserCourseId")
		return 0, err
	}
	return id, nil
}

// Push stores one snapshot per course bucket of the record, any snapshot the user already
// has on the same day (in the store's location) is replaced. It returns the batch id shared
// by every stored snapshot.
func (s Store) Push(ctx context.Context, req PushRequest) (string, error) {
	assert.NotEmptyStr(req.User)

	now := req.Time
	if now.IsZero() {
		now = s.time.Now()
	}
	now = now.In(s.time.Location())
	startOfToday := chrono.StartOfDay(now)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)

	batch, err := random.String(batchIdLength)
	if err != nil {
		s.tel.ReportBroken(report_push, fmt.Errorf("generate batch id: %w", err))
		return "", err
	}

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return "", err
	}
	defer discard()

	err = s.exec(ctx, tx, "DeleteGradeSnapshotsIn", sq.Delete("grade_snapshot").Where(sq.And{
		sq.GtOrEq{"time": startOfToday.Unix()},
		sq.Lt{"time": startOfTomorrow.Unix()},
		sq.Expr("user_course_id in (select id from user_course where user_id = ?)", req.User),
	}))
	if err != nil {
		return "", err
	}

	for _, course := range slices.Sorted(maps.Keys(req.Record)) {
		buckets := req.Record[course]
		if len(buckets) == 0 {
			continue
		}
		userCourseId, err := s.userCourseId(ctx, tx, req.User, course)
		if err != nil {
			return "", err
		}

		insert := sq.Insert("grade_snapshot").Columns("user_course_id", "bucket", "value", "time", "batch")
		for _, bucket := range slices.Sorted(maps.Keys(buckets)) {
			insert = insert.Values(userCourseId, bucket, buckets[bucket], now.Unix(), batch)
		}
		err = s.exec(ctx, tx, "CreateGradeSnapshots", insert)
		if err != nil {
			return "", err
		}
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err))
		return "", err
	}
	s.tel.ReportDebug("push snapshot", req.User, batch, len(req.Record))
	return batch, nil
}

type GradeSnapshot struct {
	Time  time.Time `json:"time"`
	Value string    `json:"value"`
}

type CourseSnapshotSeries struct {
	Course    string          `json:"course"`
	Bucket    string          `json:"bucket"`
	Snapshots []GradeSnapshot `json:"snapshots"`
}

// Pull returns every series of a user ordered by course then bucket, snapshots in a series
// are ordered by time.
func (s Store) Pull(ctx context.Context, user string) ([]CourseSnapshotSeries, error) {
	query, args, err := sq.Select("uc.course", "s.bucket", "s.time", "s.value").
		From("grade_snapshot s").
		Join("user_course uc on uc.id = s.user_course_id").
		Where(sq.Eq{"uc.user_id": user}).
		OrderBy("uc.course", "s.bucket", "s.time", "s.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetGradeSnapshots", user)
		return nil, err
	}
	defer rows.Close()

	var series []CourseSnapshotSeries
	for rows.Next() {
		var course, bucket, value string
		var unix int64
		err := rows.Scan(&course, &bucket, &unix, &value)
		if err != nil {
			return nil, err
		}

		snapshot := GradeSnapshot{
			Time:  time.Unix(unix, 0).In(s.time.Location()),
			Value: value,
		}
		if n := len(series); n > 0 && series[n-1].Course == course && series[n-1].Bucket == bucket {
			series[n-1].Snapshots = append(series[n-1].Snapshots, snapshot)
			continue
		}
		series = append(series, CourseSnapshotSeries{
			Course:    course,
			Bucket:    bucket,
			Snapshots: []GradeSnapshot{snapshot},
		})
	}
	return series, rows.Err()
}

// Latest returns the record of the most recent push of a user, the record is nil when the
// user has no snapshots.
func (s Store) Latest(ctx context.Context, user string) (gradebook.CourseRecord, time.Time, error) {
	query, args, err := sq.Select("s.batch", "s.time").
		From("grade_snapshot s").
		Join("user_course uc on uc.id = s.user_course_id").
		Where(sq.Eq{"uc.user_id": user}).
		OrderBy("s.time desc", "s.id desc").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, time.Time{}, err
	}

	var batch string
	var unix int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&batch, &unix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetLatestBatch", user)
		return nil, time.Time{}, err
	}

	query, args, err = sq.Select("uc.course", "s.bucket", "s.value").
		From("grade_snapshot s").
		Join("user_course uc on uc.id = s.user_course_id").
		Where(sq.Eq{"s.batch": batch}).
		ToSql()
	if err != nil {
		return nil, time.Time{}, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetBatchSnapshots", batch)
		return nil, time.Time{}, err
	}
	defer rows.Close()

	record := gradebook.CourseRecord{}
	for rows.Next() {
		var course, bucket, value string
		err := rows.Scan(&course, &bucket, &value)
		if err != nil {
			return nil, time.Time{}, err
		}
		if record[course] == nil {
			record[course] = map[string]string{}
		}
		record[course][bucket] = value
	}
	return record, time.Unix(unix, 0).In(s.time.Location()), rows.Err()
}
