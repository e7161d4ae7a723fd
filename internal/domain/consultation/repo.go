package consultation

import (
	"context"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
)

// Repository is bound to one resolved database handle; it never chooses a
// medical center itself. GetByID, Update and Delete return an rpc NotFound
// error when the id is absent from that database.
type Repository interface {
	GetByID(ctx context.Context, id int) (*Consultation, error)
	List(ctx context.Context) ([]*Consultation, error)
	Create(ctx context.Context, c *Consultation) error
	Update(ctx context.Context, c *Consultation) error
	Delete(ctx context.Context, id int) error
}

// RepoFactory binds a Repository to a handle.
type RepoFactory func(h *db.Handle) Repository
