package admin

const (
	StatusActive = "Activo"
	DefaultRole  = "Usuario"

	maxSpecialtyName = 100
	maxUsername      = 50
	maxRole          = 30
	minPassword      = 6
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordBytes = 72
)

// Doctor maps to the empleados table. SpecialtyName is filled by reads that
// join especialidades and is ignored on writes.
type Doctor struct {
	ID              int     `db:"id_empleado" json:"id_empleado"`
	MedicalCenterID int     `db:"id_centro_medico" json:"id_centro_medico"`
	TypeID          int     `db:"id_tipo" json:"id_tipo"`
	SpecialtyID     int     `db:"id_especialidad" json:"id_especialidad"`
	Name            string  `db:"nombre" json:"nombre"`
	Phone           string  `db:"telefono" json:"telefono"`
	Email           string  `db:"email" json:"email"`
	Salary          float64 `db:"salario" json:"salario"`
	Schedule        string  `db:"horario" json:"horario"`
	Status          string  `db:"estado" json:"estado"`
	SpecialtyName   string  `json:"nombre_especialidad,omitempty"`
}

// Specialty maps to the especialidades table.
type Specialty struct {
	ID   int    `db:"id_especialidad" json:"id_especialidad"`
	Name string `db:"nombre" json:"nombre"`
}

// User maps to the usuarios table. Password is only accepted on writes;
// reads never return it or its hash.
type User struct {
	ID           int           `db:"id_usuario" json:"id_usuario"`
	Username     string        `db:"nombre_usuario" json:"nombre_usuario"`
	Password     string        `json:"contrasena,omitempty"`
	PasswordHash string        `db:"contraseña" json:"-"`
	Role         string        `db:"rol" json:"rol"`
	EmployeeID   int           `db:"id_empleado" json:"id_empleado"`
	Employee     *UserEmployee `json:"empleado,omitempty"`
}

// UserEmployee is the employee summary attached to a user.
type UserEmployee struct {
	ID    int    `json:"id_empleado"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Phone string `json:"telefono"`
}

// DeleteResponse acknowledges a delete.
type DeleteResponse struct {
	Exito bool `json:"exito"`
}
