package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tissuewatch/internal/domain"
)

const defaultReadingsLimit = 500

// PostgresReadingsRepo 读数仓库 PostgreSQL 实现
type PostgresReadingsRepo struct {
	db *sql.DB
}

func NewPostgresReadingsRepo(db *sql.DB) *PostgresReadingsRepo {
	return &PostgresReadingsRepo{db: db}
}

var _ ReadingsRepository = (*PostgresReadingsRepo)(nil)

func (r *PostgresReadingsRepo) Create(ctx context.Context, rd *domain.Reading) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO readings (device_id, alert, count, refer_val, tamper, timestamp)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, timestamp`,
		rd.DeviceID, rd.Alert, rd.Count, rd.ReferVal, rd.Tamper,
	).Scan(&rd.ID, &rd.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}
	return nil
}

func (r *PostgresReadingsRepo) ListAll(ctx context.Context, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		limit = defaultReadingsLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, alert, count, refer_val, tamper, timestamp
		 FROM readings ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()
	return scanReadings(rows)
}

func (r *PostgresReadingsRepo) ListByDevice(ctx context.Context, deviceID int64) ([]domain.Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, alert, count, refer_val, tamper, timestamp
		 FROM readings WHERE device_id = $1 ORDER BY timestamp DESC`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings by device: %w", err)
	}
	defer rows.Close()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]domain.Reading, error) {
	var out []domain.Reading
	for rows.Next() {
		var rd domain.Reading
		if err := rows.Scan(&rd.ID, &rd.DeviceID, &rd.Alert, &rd.Count,
			&rd.ReferVal, &rd.Tamper, &rd.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *PostgresReadingsRepo) StatsByDevice(ctx context.Context) ([]DeviceStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.room_number, d.floor_number,
		        COUNT(rd.id),
		        COUNT(rd.id) FILTER (WHERE rd.alert = 'LOW'),
		        COUNT(rd.id) FILTER (WHERE rd.alert IN ('LOW', 'MEDIUM', 'HIGH')),
		        COUNT(rd.id) FILTER (WHERE rd.tamper = 'true'),
		        MAX(rd.timestamp)
		 FROM devices d
		 LEFT JOIN readings rd ON rd.device_id = d.id
		 GROUP BY d.id, d.name, d.room_number, d.floor_number
		 ORDER BY d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate device stats: %w", err)
	}
	defer rows.Close()

	var out []DeviceStats
	for rows.Next() {
		var s DeviceStats
		var last sql.NullTime
		if err := rows.Scan(&s.DeviceID, &s.Name, &s.RoomNumber, &s.FloorNumber,
			&s.TotalEntries, &s.LowAlertCount, &s.AlertishCount, &s.TamperCount, &last); err != nil {
			return nil, fmt.Errorf("failed to scan device stats: %w", err)
		}
		if last.Valid {
			t := last.Time
			s.LastAlertTime = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
