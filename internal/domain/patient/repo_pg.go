package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

type repoPG struct {
	conn db.Querier
}

func NewRepo(h *db.Handle) Repository {
	return &repoPG{conn: h.Conn}
}

const patientColumns = `id_paciente, nombre, cedula, fecha_nacimiento, telefono, direccion`

func (r *repoPG) GetByID(ctx context.Context, id int) (*Patient, error) {
	p, err := scanPatient(r.conn.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE id_paciente = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpc.NotFound("patient %d not found", id)
	}
	return p, err
}

func (r *repoPG) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+patientColumns+` FROM pacientes ORDER BY id_paciente`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Patient, error) {
		return scanPatient(row)
	})
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO pacientes (nombre, cedula, fecha_nacimiento, telefono, direccion)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id_paciente`,
		p.Name, p.Cedula, p.BirthDate, nullable(p.Phone), nullable(p.Address),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE pacientes SET nombre = $2, cedula = $3, fecha_nacimiento = $4, telefono = $5, direccion = $6
		WHERE id_paciente = $1`,
		p.ID, p.Name, p.Cedula, p.BirthDate, nullable(p.Phone), nullable(p.Address),
	)
	if err != nil {
		return fmt.Errorf("update patient %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("patient %d not found", p.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM pacientes WHERE id_paciente = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("patient %d not found", id)
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var (
		p                Patient
		phone, direccion *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Cedula, &p.BirthDate, &phone, &direccion); err != nil {
		return nil, err
	}
	if phone != nil {
		p.Phone = *phone
	}
	if direccion != nil {
		p.Address = *direccion
	}
	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
