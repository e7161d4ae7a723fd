package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

// -- Doctor Repository --

type doctorRepoPG struct {
	conn db.Querier
}

// NewDoctorRepo binds the doctor repository to the administration database,
// which always lives on the primary connection.
func NewDoctorRepo(conn db.Querier) DoctorRepository {
	return &doctorRepoPG{conn: conn}
}

const doctorColumns = `e.id_empleado, e.id_centro_medico, e.id_tipo, e.id_especialidad, e.nombre,
	e.telefono, e.email, e.salario, e.horario, e.estado, es.nombre`

const doctorFrom = ` FROM empleados e LEFT JOIN especialidades es ON es.id_especialidad = e.id_especialidad`

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO empleados (
			id_centro_medico, id_tipo, id_especialidad, nombre,
			telefono, email, salario, horario, estado
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id_empleado`,
		nullInt(d.MedicalCenterID), nullInt(d.TypeID), nullInt(d.SpecialtyID), d.Name,
		nullString(d.Phone), nullString(d.Email), d.Salary, nullString(d.Schedule), d.Status,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int) (*Doctor, error) {
	d, err := scanDoctor(r.conn.QueryRow(ctx, `SELECT `+doctorColumns+doctorFrom+` WHERE e.id_empleado = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpc.NotFound("doctor %d not found", id)
	}
	return d, err
}

func (r *doctorRepoPG) GetByIDInCenter(ctx context.Context, id, medicalCenterID int) (*Doctor, error) {
	d, err := scanDoctor(r.conn.QueryRow(ctx,
		`SELECT `+doctorColumns+doctorFrom+` WHERE e.id_empleado = $1 AND e.id_centro_medico = $2`,
		id, medicalCenterID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpc.NotFound("doctor %d not found in medical center %d", id, medicalCenterID)
	}
	return d, err
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE empleados SET
			id_centro_medico = $2, id_tipo = $3, id_especialidad = $4, nombre = $5,
			telefono = $6, email = $7, salario = $8, horario = $9, estado = $10
		WHERE id_empleado = $1`,
		d.ID, nullInt(d.MedicalCenterID), nullInt(d.TypeID), nullInt(d.SpecialtyID), d.Name,
		nullString(d.Phone), nullString(d.Email), d.Salary, nullString(d.Schedule), d.Status,
	)
	if err != nil {
		return fmt.Errorf("update doctor %d: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("doctor %d not found", d.ID)
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id int) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM empleados WHERE id_empleado = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("doctor %d not found", id)
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, medicalCenterID int) ([]*Doctor, error) {
	query := `SELECT ` + doctorColumns + doctorFrom
	var args []interface{}
	if medicalCenterID > 0 {
		query += ` WHERE e.id_centro_medico = $1`
		args = append(args, medicalCenterID)
	}
	query += ` ORDER BY e.id_empleado`

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var (
		d                                 Doctor
		center, typeID, specialtyID       *int
		phone, email, schedule, specialty *string
		salary                            *float64
	)
	err := row.Scan(&d.ID, &center, &typeID, &specialtyID, &d.Name,
		&phone, &email, &salary, &schedule, &d.Status, &specialty)
	if err != nil {
		return nil, err
	}
	d.MedicalCenterID = derefInt(center)
	d.TypeID = derefInt(typeID)
	d.SpecialtyID = derefInt(specialtyID)
	d.Phone = derefString(phone)
	d.Email = derefString(email)
	d.Schedule = derefString(schedule)
	d.SpecialtyName = derefString(specialty)
	if salary != nil {
		d.Salary = *salary
	}
	return &d, nil
}

// -- Specialty Repository --

type specialtyRepoPG struct {
	conn db.Querier
}

func NewSpecialtyRepo(conn db.Querier) SpecialtyRepository {
	return &specialtyRepoPG{conn: conn}
}

func (r *specialtyRepoPG) Create(ctx context.Context, s *Specialty) error {
	err := r.conn.QueryRow(ctx,
		`INSERT INTO especialidades (nombre) VALUES ($1) RETURNING id_especialidad`, s.Name,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert specialty: %w", err)
	}
	return nil
}

func (r *specialtyRepoPG) GetByID(ctx context.Context, id int) (*Specialty, error) {
	var s Specialty
	err := r.conn.QueryRow(ctx,
		`SELECT id_especialidad, nombre FROM especialidades WHERE id_especialidad = $1`, id,
	).Scan(&s.ID, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpc.NotFound("specialty %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *specialtyRepoPG) Update(ctx context.Context, s *Specialty) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE especialidades SET nombre = $2 WHERE id_especialidad = $1`, s.ID, s.Name)
	if err != nil {
		return fmt.Errorf("update specialty %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("specialty %d not found", s.ID)
	}
	return nil
}

func (r *specialtyRepoPG) Delete(ctx context.Context, id int) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM especialidades WHERE id_especialidad = $1`, id)
	if err != nil {
		return fmt.Errorf("delete specialty %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("specialty %d not found", id)
	}
	return nil
}

func (r *specialtyRepoPG) List(ctx context.Context) ([]*Specialty, error) {
	rows, err := r.conn.Query(ctx, `SELECT id_especialidad, nombre FROM especialidades ORDER BY id_especialidad`)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Specialty, error) {
		var s Specialty
		err := row.Scan(&s.ID, &s.Name)
		return &s, err
	})
}

// -- User Repository --

type userRepoPG struct {
	conn db.Querier
}

func NewUserRepo(conn db.Querier) UserRepository {
	return &userRepoPG{conn: conn}
}

const userColumns = `u.id_usuario, u.nombre_usuario, u."contraseña", u.rol, u.id_empleado,
	e.nombre, e.email, e.telefono`

const userFrom = ` FROM usuarios u LEFT JOIN empleados e ON e.id_empleado = u.id_empleado`

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO usuarios (nombre_usuario, "contraseña", rol, id_empleado)
		VALUES ($1, $2, $3, $4)
		RETURNING id_usuario`,
		u.Username, u.PasswordHash, u.Role, nullInt(u.EmployeeID),
	).Scan(&u.ID)
	if err != nil {
		return userWriteError(err, u.Username, "insert user")
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id int) (*User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE u.id_usuario = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpc.NotFound("user %d not found", id)
	}
	return u, err
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+userFrom+` WHERE u.nombre_usuario = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, rpc.NotFound("user %q not found", username)
	}
	return u, err
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE usuarios SET
			nombre_usuario = $2, rol = $3, id_empleado = $4,
			"contraseña" = COALESCE(NULLIF($5, ''), "contraseña")
		WHERE id_usuario = $1`,
		u.ID, u.Username, u.Role, nullInt(u.EmployeeID), u.PasswordHash,
	)
	if err != nil {
		return userWriteError(err, u.Username, fmt.Sprintf("update user %d", u.ID))
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("user %d not found", u.ID)
	}
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id int) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM usuarios WHERE id_usuario = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return rpc.NotFound("user %d not found", id)
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context) ([]*User, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+userColumns+userFrom+` ORDER BY u.id_usuario`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*User, error) {
		return scanUser(row)
	})
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u                  User
		employeeID         *int
		name, email, phone *string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &employeeID, &name, &email, &phone); err != nil {
		return nil, err
	}
	u.EmployeeID = derefInt(employeeID)
	if name != nil {
		u.Employee = &UserEmployee{
			ID:    u.EmployeeID,
			Name:  *name,
			Email: derefString(email),
			Phone: derefString(phone),
		}
	}
	return &u, nil
}

// userWriteError turns a unique violation on nombre_usuario into
// InvalidArgument. The service checks first; this covers concurrent writers.
func userWriteError(err error, username, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return rpc.InvalidArgument("nombre_usuario %q already exists", username)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
