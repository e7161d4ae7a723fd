package admin

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
)

// PasswordHasher turns a plain password into the stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Service owns doctors, specialties and users. All of them live in the
// administration database; only doctors carry a medical center.
type Service struct {
	doctors     DoctorRepository
	specialties SpecialtyRepository
	users       UserRepository
	hasher      PasswordHasher
	logger      zerolog.Logger
}

func NewService(doctors DoctorRepository, specialties SpecialtyRepository, users UserRepository, logger zerolog.Logger) *Service {
	return &Service{
		doctors:     doctors,
		specialties: specialties,
		users:       users,
		hasher:      bcryptHasher{cost: bcrypt.DefaultCost},
		logger:      logger,
	}
}

// -- Doctor --

// GetDoctor is scoped to the caller's medical center. Administrators see
// doctors of every center.
func (s *Service) GetDoctor(ctx context.Context, rc reqctx.RequestContext, id int) (*Doctor, error) {
	if rc.IsAdmin() {
		return s.doctors.GetByID(ctx, id)
	}
	return s.doctors.GetByIDInCenter(ctx, id, rc.MedicalCenterID)
}

func (s *Service) ListDoctors(ctx context.Context, rc reqctx.RequestContext) ([]*Doctor, error) {
	center := rc.MedicalCenterID
	if rc.IsAdmin() {
		center = 0
	}
	return s.doctors.List(ctx, center)
}

func (s *Service) CreateDoctor(ctx context.Context, rc reqctx.RequestContext, d *Doctor) error {
	if err := s.prepareDoctor(ctx, rc, d); err != nil {
		return err
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return err
	}
	s.logger.Info().Int("id_empleado", d.ID).Int("medical_center_id", d.MedicalCenterID).Msg("doctor created")
	return nil
}

func (s *Service) UpdateDoctor(ctx context.Context, rc reqctx.RequestContext, d *Doctor) error {
	if _, err := s.GetDoctor(ctx, rc, d.ID); err != nil {
		return err
	}
	if err := s.prepareDoctor(ctx, rc, d); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, rc reqctx.RequestContext, id int) error {
	if _, err := s.GetDoctor(ctx, rc, id); err != nil {
		return err
	}
	return s.doctors.Delete(ctx, id)
}

// prepareDoctor validates d and applies defaults. Ordinary callers can only
// place doctors in their own medical center.
func (s *Service) prepareDoctor(ctx context.Context, rc reqctx.RequestContext, d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return rpc.InvalidArgument("nombre is required")
	}
	if d.Salary < 0 {
		return rpc.InvalidArgument("salario must not be negative")
	}
	if d.MedicalCenterID < 0 || d.TypeID < 0 || d.SpecialtyID < 0 {
		return rpc.InvalidArgument("ids must not be negative")
	}

	if !rc.IsAdmin() {
		if d.MedicalCenterID != 0 && d.MedicalCenterID != rc.MedicalCenterID {
			return rpc.Errorf(rpc.CodePermissionDenied, "cannot assign a doctor to medical center %d", d.MedicalCenterID)
		}
		d.MedicalCenterID = rc.MedicalCenterID
	} else if d.MedicalCenterID == 0 {
		d.MedicalCenterID = rc.MedicalCenterID
	}

	if d.Status == "" {
		d.Status = StatusActive
	}

	if d.SpecialtyID > 0 {
		sp, err := s.specialties.GetByID(ctx, d.SpecialtyID)
		if rpc.IsNotFound(err) {
			return rpc.InvalidArgument("specialty %d does not exist", d.SpecialtyID)
		}
		if err != nil {
			return err
		}
		d.SpecialtyName = sp.Name
	}
	return nil
}

// -- Specialty --

func (s *Service) GetSpecialty(ctx context.Context, id int) (*Specialty, error) {
	return s.specialties.GetByID(ctx, id)
}

func (s *Service) ListSpecialties(ctx context.Context) ([]*Specialty, error) {
	return s.specialties.List(ctx)
}

func (s *Service) CreateSpecialty(ctx context.Context, sp *Specialty) error {
	if err := validateSpecialty(sp); err != nil {
		return err
	}
	return s.specialties.Create(ctx, sp)
}

func (s *Service) UpdateSpecialty(ctx context.Context, sp *Specialty) error {
	if err := validateSpecialty(sp); err != nil {
		return err
	}
	return s.specialties.Update(ctx, sp)
}

func (s *Service) DeleteSpecialty(ctx context.Context, id int) error {
	return s.specialties.Delete(ctx, id)
}

func validateSpecialty(sp *Specialty) error {
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Name == "" {
		return rpc.InvalidArgument("nombre is required")
	}
	if utf8.RuneCountInString(sp.Name) > maxSpecialtyName {
		return rpc.InvalidArgument("nombre must be at most %d characters", maxSpecialtyName)
	}
	return nil
}

// -- User --

func (s *Service) GetUser(ctx context.Context, id int) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, rpc.InvalidArgument("nombre_usuario is required")
	}
	return s.users.GetByUsername(ctx, username)
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}

// CreateUser stores u with a hashed password. Only administrators manage
// users.
func (s *Service) CreateUser(ctx context.Context, rc reqctx.RequestContext, u *User) error {
	if !rc.IsAdmin() {
		return rpc.Errorf(rpc.CodePermissionDenied, "only administrators can create users")
	}
	if u.Password == "" {
		return rpc.InvalidArgument("contrasena is required")
	}
	if err := s.prepareUser(ctx, u); err != nil {
		return err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return err
	}
	s.logger.Info().Int("id_usuario", u.ID).Str("rol", u.Role).Msg("user created")
	return nil
}

// UpdateUser rewrites u. The stored password is kept unless a new one is
// given.
func (s *Service) UpdateUser(ctx context.Context, rc reqctx.RequestContext, u *User) error {
	if !rc.IsAdmin() {
		return rpc.Errorf(rpc.CodePermissionDenied, "only administrators can update users")
	}
	if _, err := s.users.GetByID(ctx, u.ID); err != nil {
		return err
	}
	if err := s.prepareUser(ctx, u); err != nil {
		return err
	}
	return s.users.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, rc reqctx.RequestContext, id int) error {
	if !rc.IsAdmin() {
		return rpc.Errorf(rpc.CodePermissionDenied, "only administrators can delete users")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int("id_usuario", id).Msg("user deleted")
	return nil
}

// prepareUser validates u, applies defaults, checks the username is free and
// the employee exists, and replaces any plain password with its hash.
func (s *Service) prepareUser(ctx context.Context, u *User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Role = strings.TrimSpace(u.Role)
	switch {
	case u.Username == "":
		return rpc.InvalidArgument("nombre_usuario is required")
	case utf8.RuneCountInString(u.Username) > maxUsername:
		return rpc.InvalidArgument("nombre_usuario must be at most %d characters", maxUsername)
	case utf8.RuneCountInString(u.Role) > maxRole:
		return rpc.InvalidArgument("rol must be at most %d characters", maxRole)
	case u.EmployeeID < 0:
		return rpc.InvalidArgument("id_empleado must not be negative")
	}
	if u.Password != "" && (utf8.RuneCountInString(u.Password) < minPassword || len(u.Password) > maxPasswordBytes) {
		return rpc.InvalidArgument("contrasena must be between %d characters and %d bytes", minPassword, maxPasswordBytes)
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}

	existing, err := s.users.GetByUsername(ctx, u.Username)
	switch {
	case err == nil && existing.ID != u.ID:
		return rpc.InvalidArgument("nombre_usuario %q already exists", u.Username)
	case err != nil && !rpc.IsNotFound(err):
		return err
	}

	u.Employee = nil
	if u.EmployeeID > 0 {
		e, err := s.doctors.GetByID(ctx, u.EmployeeID)
		if rpc.IsNotFound(err) {
			return rpc.InvalidArgument("employee %d does not exist", u.EmployeeID)
		}
		if err != nil {
			return err
		}
		u.Employee = &UserEmployee{ID: e.ID, Name: e.Name, Email: e.Email, Phone: e.Phone}
	}

	u.PasswordHash = ""
	if u.Password != "" {
		hash, err := s.hasher.Hash(u.Password)
		if err != nil {
			return rpc.Internal(err, "hash password")
		}
		u.PasswordHash = hash
		u.Password = ""
	}
	return nil
}
