package patient

import (
	"context"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
)

// Repository is bound to one medical center's database.
type Repository interface {
	GetByID(ctx context.Context, id int) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int) error
}

type RepoFactory func(h *db.Handle) Repository
