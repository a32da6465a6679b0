package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tissuewatch/internal/domain"
)

// PostgresDevicesRepo 设备仓库 PostgreSQL 实现
type PostgresDevicesRepo struct {
	db *sql.DB
}

func NewPostgresDevicesRepo(db *sql.DB) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db}
}

var _ DevicesRepository = (*PostgresDevicesRepo)(nil)

const deviceColumns = "id, name, floor_number, room_number, hardware_id, registration_type, metadata, added_by, created_at"

func scanDevice(row interface{ Scan(...interface{}) error }) (*domain.Device, error) {
	var d domain.Device
	var metadata []byte
	err := row.Scan(&d.ID, &d.Name, &d.FloorNumber, &d.RoomNumber,
		&d.HardwareID, &d.RegistrationType, &metadata, &d.AddedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Metadata = metadata
	return &d, nil
}

func (r *PostgresDevicesRepo) Create(ctx context.Context, d *domain.Device) error {
	if d.RegistrationType == "" {
		d.RegistrationType = "manual"
	}
	metadata := d.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO devices (name, floor_number, room_number, hardware_id, registration_type, metadata, added_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 RETURNING id, created_at`,
		d.Name, d.FloorNumber, d.RoomNumber, d.HardwareID, d.RegistrationType, metadata, d.AddedBy,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *PostgresDevicesRepo) GetByID(ctx context.Context, id int64) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM devices WHERE id = $1`, deviceColumns), id)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

func (r *PostgresDevicesRepo) GetByHardwareID(ctx context.Context, hardwareID string) (*domain.Device, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM devices WHERE hardware_id = $1`, deviceColumns), hardwareID)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device by hardware id: %w", err)
	}
	return d, nil
}

func (r *PostgresDevicesRepo) List(ctx context.Context, page, size int) ([]domain.Device, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM devices ORDER BY created_at DESC LIMIT $1 OFFSET $2`, deviceColumns),
		size, (page-1)*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan device: %w", err)
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func (r *PostgresDevicesRepo) Update(ctx context.Context, d *domain.Device) error {
	metadata := d.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = $1, floor_number = $2, room_number = $3, metadata = $4 WHERE id = $5`,
		d.Name, d.FloorNumber, d.RoomNumber, metadata, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDevicesRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDevicesRepo) OwnerOf(ctx context.Context, deviceID int64) (*int64, error) {
	var owner sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT added_by FROM devices WHERE id = $1`, deviceID).Scan(&owner)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device owner: %w", err)
	}
	if !owner.Valid {
		return nil, nil
	}
	v := owner.Int64
	return &v, nil
}
