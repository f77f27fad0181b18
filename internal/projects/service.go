package projects

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("project not found")
	ErrUnauthorized = errors.New("not the project owner")
)

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Registry    string `json:"registry"`
	Country     string `json:"country"`
	Category    string `json:"category"`
	StartYear   int    `json:"startYear"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Registry    *string `json:"registry"`
	Country     *string `json:"country"`
	Category    *string `json:"category"`
	StartYear   *int    `json:"startYear"`
}

type Service interface {
	CreateProject(ctx context.Context, req CreateProjectRequest, ownerID uuid.UUID) (*Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, req UpdateProjectRequest, userID uuid.UUID) (*Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type projectService struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &projectService{repo: repo}
}

func (s *projectService) CreateProject(ctx context.Context, req CreateProjectRequest, ownerID uuid.UUID) (*Project, error) {
	if req.Name == "" {
		return nil, errors.New("name is required")
	}
	project := &Project{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Registry:    req.Registry,
		Country:     req.Country,
		Category:    req.Category,
		StartYear:   req.StartYear,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	return project, nil
}

func (s *projectService) ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error) {
	return s.repo.List(ctx, filter)
}

func (s *projectService) UpdateProject(ctx context.Context, id uuid.UUID, req UpdateProjectRequest, userID uuid.UUID) (*Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != userID {
		return nil, ErrUnauthorized
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Registry != nil {
		project.Registry = *req.Registry
	}
	if req.Country != nil {
		project.Country = *req.Country
	}
	if req.Category != nil {
		project.Category = *req.Category
	}
	if req.StartYear != nil {
		project.StartYear = *req.StartYear
	}
	project.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) DeleteProject(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if project.OwnerID != userID {
		return ErrUnauthorized
	}
	return s.repo.Delete(ctx, id)
}
