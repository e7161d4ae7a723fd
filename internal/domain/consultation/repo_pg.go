package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

type repoPG struct {
	conn db.Querier
}

// NewRepo is the RepoFactory for PostgreSQL.
func NewRepo(h *db.Handle) Repository {
	return &repoPG{conn: h.Conn}
}

const consultaCols = `id_consulta_medica, fecha, hora, motivo, diagnostico, tratamiento, id_paciente, id_medico`

func (r *repoPG) GetByID(ctx context.Context, id int) (*Consultation, error) {
	c, err := scanConsultation(r.conn.QueryRow(ctx,
		`SELECT `+consultaCols+` FROM consulta_medica WHERE id_consulta_medica = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpc.NotFound("consultation %d not found", id)
	}
	return c, err
}

func (r *repoPG) List(ctx context.Context) ([]*Consultation, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+consultaCols+` FROM consulta_medica ORDER BY id_consulta_medica`)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var out []*Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	return r.conn.QueryRow(ctx, `
		INSERT INTO consulta_medica (fecha, hora, motivo, diagnostico, tratamiento, id_paciente, id_medico)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id_consulta_medica`,
		c.Date, timeOfDay(c.Time), c.Reason, c.Diagnosis, c.Treatment, c.PatientID, doctorRef(c.DoctorID),
	).Scan(&c.ID)
}

func (r *repoPG) Update(ctx context.Context, c *Consultation) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE consulta_medica SET
			fecha=$2, hora=$3, motivo=$4, diagnostico=$5, tratamiento=$6, id_paciente=$7, id_medico=$8
		WHERE id_consulta_medica = $1`,
		c.ID, c.Date, timeOfDay(c.Time), c.Reason, c.Diagnosis, c.Treatment, c.PatientID, doctorRef(c.DoctorID),
	)
	if err != nil {
		return fmt.Errorf("update consultation %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("consultation %d not found", c.ID)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM consulta_medica WHERE id_consulta_medica = $1`, id)
	if err != nil {
		return fmt.Errorf("delete consultation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("consultation %d not found", id)
	}
	return nil
}

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var (
		c                                Consultation
		hora                             pgtype.Time
		motivo, diagnostico, tratamiento *string
		idMedico                         *int
	)
	if err := row.Scan(&c.ID, &c.Date, &hora, &motivo, &diagnostico, &tratamiento, &c.PatientID, &idMedico); err != nil {
		return nil, err
	}
	if hora.Valid {
		c.Time = time.Duration(hora.Microseconds) * time.Microsecond
	}
	c.Reason = deref(motivo)
	c.Diagnosis = deref(diagnostico)
	c.Treatment = deref(tratamiento)
	if idMedico != nil {
		c.DoctorID = *idMedico
	}
	return &c, nil
}

func timeOfDay(d time.Duration) pgtype.Time {
	return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}
}

// doctorRef maps the zero id to NULL.
func doctorRef(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
