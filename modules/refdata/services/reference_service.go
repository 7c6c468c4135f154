package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JomsTrinidad/master-data-utility/modules/refdata/domain/reference"
	"github.com/JomsTrinidad/master-data-utility/modules/refdata/permissions"
)

// ReferenceService covers the catalog side: creating, listing and
// administratively editing references. Baseline movement stays with the
// change-request lifecycle; this service never touches it.
type ReferenceService struct {
	refs reference.Repository
	caps permissions.CapabilityChecker
}

func NewReferenceService(refs reference.Repository, caps permissions.CapabilityChecker) *ReferenceService {
	return &ReferenceService{refs: refs, caps: caps}
}

type CreateReferenceInput struct {
	Name               string
	Kind               string
	Mode               string
	Collaboration      string
	Description        string
	OwnerGroup         string
	Tags               string
	Category           string
	DataClassification string
}

func (s *ReferenceService) requireSteward(ctx context.Context, actor permissions.Actor) error {
	ok, err := s.caps.HasCapability(ctx, actor, permissions.CapSteward)
	if err != nil {
		return newServiceError(http.StatusInternalServerError, "REFDATA_INTERNAL", "capability check failed", err)
	}
	if !ok {
		return newServiceError(http.StatusForbidden, "REFDATA_FORBIDDEN",
			fmt.Sprintf("user lacks the %s capability", permissions.CapSteward), nil)
	}
	return nil
}

func (s *ReferenceService) Create(ctx context.Context, actor permissions.Actor, in CreateReferenceInput) (*reference.Reference, error) {
	if err := s.requireSteward(ctx, actor); err != nil {
		return nil, err
	}
	if err := validateReferenceInput(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.refs.Create(ctx, &reference.Reference{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(in.Name),
		Kind:               in.Kind,
		Mode:               in.Mode,
		Status:             reference.StatusActive,
		Collaboration:      in.Collaboration,
		Description:        strings.TrimSpace(in.Description),
		OwnerGroup:         strings.TrimSpace(in.OwnerGroup),
		Tags:               strings.TrimSpace(in.Tags),
		Category:           strings.TrimSpace(in.Category),
		DataClassification: in.DataClassification,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return created, nil
}

func validateReferenceInput(in CreateReferenceInput) error {
	var errs []string
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, "name is required")
	}
	switch in.Kind {
	case reference.KindMap, reference.KindList:
	default:
		errs = append(errs, fmt.Sprintf("kind must be %q or %q", reference.KindMap, reference.KindList))
	}
	switch in.Mode {
	case reference.ModeVersioning, reference.ModeSnapshot:
	default:
		errs = append(errs, fmt.Sprintf("mode must be %q or %q", reference.ModeVersioning, reference.ModeSnapshot))
	}
	switch in.Collaboration {
	case reference.CollaborationSingleOwner, reference.CollaborationCollaborative:
	default:
		errs = append(errs, fmt.Sprintf("collaboration_mode must be %q or %q",
			reference.CollaborationSingleOwner, reference.CollaborationCollaborative))
	}
	switch in.DataClassification {
	case "", reference.ClassificationGeneral, reference.ClassificationClassified:
	default:
		errs = append(errs, fmt.Sprintf("data_classification must be %q or %q",
			reference.ClassificationGeneral, reference.ClassificationClassified))
	}
	if len(errs) > 0 {
		return newValidationError(errs, nil)
	}
	return nil
}

func (s *ReferenceService) GetByID(ctx context.Context, id uuid.UUID) (*reference.Reference, error) {
	ref, err := s.refs.GetByID(ctx, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	return ref, nil
}

func (s *ReferenceService) GetByName(ctx context.Context, name string) (*reference.Reference, error) {
	ref, err := s.refs.GetByName(ctx, name)
	if err != nil {
		return nil, mapPgError(err)
	}
	return ref, nil
}

func (s *ReferenceService) List(ctx context.Context, f reference.Filter) ([]*reference.Reference, error) {
	out, err := s.refs.List(ctx, f)
	if err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

type UpdateReferenceInput struct {
	Description *string
	OwnerGroup  *string
	Tags        *string
	Category    *string
}

// Update edits the descriptive metadata of a reference. Kind, mode and
// collaboration are fixed at creation; changing them would invalidate
// every existing draft.
func (s *ReferenceService) Update(ctx context.Context, actor permissions.Actor, id uuid.UUID, in UpdateReferenceInput) (*reference.Reference, error) {
	if err := s.requireSteward(ctx, actor); err != nil {
		return nil, err
	}

	ref, err := s.refs.GetByID(ctx, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	if in.Description != nil {
		ref.Description = strings.TrimSpace(*in.Description)
	}
	if in.OwnerGroup != nil {
		ref.OwnerGroup = strings.TrimSpace(*in.OwnerGroup)
	}
	if in.Tags != nil {
		ref.Tags = strings.TrimSpace(*in.Tags)
	}
	if in.Category != nil {
		ref.Category = strings.TrimSpace(*in.Category)
	}
	ref.UpdatedAt = time.Now().UTC()

	updated, err := s.refs.Update(ctx, ref)
	if err != nil {
		return nil, mapPgError(err)
	}
	return updated, nil
}

// Retire marks a reference retired. Submissions against it then require
// the explicit override flag.
func (s *ReferenceService) Retire(ctx context.Context, actor permissions.Actor, id uuid.UUID) error {
	if err := s.requireSteward(ctx, actor); err != nil {
		return err
	}
	ref, err := s.refs.GetByID(ctx, id)
	if err != nil {
		return mapPgError(err)
	}
	if ref.IsRetired() {
		return nil
	}
	if err := s.refs.UpdateStatus(ctx, id, reference.StatusRetired); err != nil {
		return mapPgError(err)
	}
	return nil
}

// Reactivate moves a retired reference back to active.
func (s *ReferenceService) Reactivate(ctx context.Context, actor permissions.Actor, id uuid.UUID) error {
	if err := s.requireSteward(ctx, actor); err != nil {
		return err
	}
	ref, err := s.refs.GetByID(ctx, id)
	if err != nil {
		return mapPgError(err)
	}
	if !ref.IsRetired() {
		return nil
	}
	if err := s.refs.UpdateStatus(ctx, id, reference.StatusActive); err != nil {
		return mapPgError(err)
	}
	return nil
}
