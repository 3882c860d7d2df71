package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morgenster/hims/internal/platform/auth"
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

const recordCols = `id, patient_id, ward_id, ward_name, bed_number, admission_date,
	admitted_by_id, admitted_by_name, last_billed_date,
	discharge_date, discharged_by_id, discharged_by_name`

func (r *repoPG) Append(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission_history (
			id, patient_id, ward_id, ward_name, bed_number, admission_date,
			admitted_by_id, admitted_by_name, last_billed_date,
			discharge_date, discharged_by_id, discharged_by_name
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.PatientID, rec.WardID, rec.WardName, rec.BedNumber, rec.AdmissionDate,
		rec.AdmittedByID, rec.AdmittedByName, rec.LastBilledDate,
		rec.DischargeDate, rec.DischargedByID, rec.DischargedByName,
	)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Record, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM admission_history
		WHERE patient_id = $1 ORDER BY admission_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecordFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repoPG) GetOpenByPatient(ctx context.Context, patientID uuid.UUID) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `
		SELECT `+recordCols+` FROM admission_history
		WHERE patient_id = $1 AND discharge_date IS NULL`, patientID))
}

func (r *repoPG) CloseOpen(ctx context.Context, patientID uuid.UUID, staff auth.Staff, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE admission_history
		SET discharge_date = $2, discharged_by_id = $3, discharged_by_name = $4
		WHERE patient_id = $1 AND discharge_date IS NULL`,
		patientID, at, staff.ID, staff.Name,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no open admission record for patient %s", patientID)
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.WardID, &rec.WardName, &rec.BedNumber, &rec.AdmissionDate,
		&rec.AdmittedByID, &rec.AdmittedByName, &rec.LastBilledDate,
		&rec.DischargeDate, &rec.DischargedByID, &rec.DischargedByName,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecordFromRows(rows pgx.Rows) (*Record, error) {
	var rec Record
	err := rows.Scan(
		&rec.ID, &rec.PatientID, &rec.WardID, &rec.WardName, &rec.BedNumber, &rec.AdmissionDate,
		&rec.AdmittedByID, &rec.AdmittedByName, &rec.LastBilledDate,
		&rec.DischargeDate, &rec.DischargedByID, &rec.DischargedByName,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
