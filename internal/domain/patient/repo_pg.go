package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morgenster/hims/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, first_name, surname, age, gender, phone, address, status,
	current_ward_id, current_ward_name, current_bed_number,
	discharge_requester_id, last_admission_date, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, first_name, surname, age, gender, phone, address, status,
			current_ward_id, current_ward_name, current_bed_number,
			discharge_requester_id, last_admission_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.FirstName, p.Surname, p.Age, p.Gender, p.Phone, p.Address, p.Status,
		p.CurrentWardID, p.CurrentWardName, p.CurrentBedNumber,
		p.DischargeRequesterID, p.LastAdmissionDate,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			first_name=$2, surname=$3, age=$4, gender=$5, phone=$6, address=$7, status=$8,
			current_ward_id=$9, current_ward_name=$10, current_bed_number=$11,
			discharge_requester_id=$12, last_admission_date=$13, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.Surname, p.Age, p.Gender, p.Phone, p.Address, p.Status,
		p.CurrentWardID, p.CurrentWardName, p.CurrentBedNumber,
		p.DischargeRequesterID, p.LastAdmissionDate,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY surname, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *repoPG) SearchByName(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	pattern := "%" + query + "%"
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE first_name ILIKE $1 OR surname ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient
		WHERE first_name ILIKE $1 OR surname ILIKE $1
		ORDER BY surname, first_name LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE status IN ($1, $2)`,
		StatusAdmitted, StatusPendingDischarge)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	patients, _, err := collectPatients(rows, 0)
	return patients, err
}

func (r *repoPG) ListActiveByWardForUpdate(ctx context.Context, wardID uuid.UUID) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient
		WHERE current_ward_id = $1 AND status IN ($2, $3) FOR UPDATE`,
		wardID, StatusAdmitted, StatusPendingDischarge)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	patients, _, err := collectPatients(rows, 0)
	return patients, err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FirstName, &p.Surname, &p.Age, &p.Gender, &p.Phone, &p.Address, &p.Status,
		&p.CurrentWardID, &p.CurrentWardName, &p.CurrentBedNumber,
		&p.DischargeRequesterID, &p.LastAdmissionDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var patients []*Patient
	for rows.Next() {
		var p Patient
		err := rows.Scan(
			&p.ID, &p.FirstName, &p.Surname, &p.Age, &p.Gender, &p.Phone, &p.Address, &p.Status,
			&p.CurrentWardID, &p.CurrentWardName, &p.CurrentBedNumber,
			&p.DischargeRequesterID, &p.LastAdmissionDate, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, &p)
	}
	return patients, total, rows.Err()
}
