package admin

import (
	"context"
)

// DoctorRepository defines the persistence interface for doctors. Lookups of
// a missing id return an rpc NotFound error.
type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int) (*Doctor, error)
	// GetByIDInCenter matches only doctors assigned to medicalCenterID.
	GetByIDInCenter(ctx context.Context, id, medicalCenterID int) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id int) error
	// List returns every doctor when medicalCenterID is 0.
	List(ctx context.Context, medicalCenterID int) ([]*Doctor, error)
}

// SpecialtyRepository defines the persistence interface for specialties.
type SpecialtyRepository interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id int) (*Specialty, error)
	Update(ctx context.Context, s *Specialty) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]*Specialty, error)
}

// UserRepository defines the persistence interface for users. Reads join the
// linked employee. Update keeps the stored hash when PasswordHash is empty.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]*User, error)
}
