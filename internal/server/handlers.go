package server

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/kaziconnect/kaziconnect/internal/auth"
	"github.com/kaziconnect/kaziconnect/internal/catalog"
	"github.com/kaziconnect/kaziconnect/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func bind(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return NewAppError(fiber.StatusBadRequest, "Invalid request body", nil, err)
	}
	return nil
}

func (s *Server) register(c fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := s.svc.Auth.Register(c.Context(), auth.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		return err
	}
	return created(c, sess)
}

func (s *Server) login(c fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := s.svc.Auth.Login(c.Context(), auth.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return ok(c, sess)
}

// refresh takes the refresh token from the Authorization header.
func (s *Server) refresh(c fiber.Ctx) error {
	token, found := bearerToken(c.Get("Authorization"))
	if !found {
		return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}

	sess, err := s.svc.Auth.Refresh(c.Context(), token)
	if err != nil {
		return err
	}
	return ok(c, sess)
}

func (s *Server) logout(c fiber.Ctx) error {
	if err := s.svc.Auth.Logout(c.Context(), claimsFrom(c)); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *Server) me(c fiber.Ctx) error {
	u, err := s.svc.Auth.Me(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, u)
}

func (s *Server) listJobs(c fiber.Ctx) error {
	filter := model.JobFilter{Status: model.JobStatus(strings.TrimSpace(c.Query("status")))}
	if filter.Status != "" && !filter.Status.Valid() {
		return NewAppError(fiber.StatusBadRequest, "Unknown job status", nil, nil)
	}

	list, err := s.svc.Catalog.ListJobs(c.Context(), filter)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) getJob(c fiber.Ctx) error {
	job, err := s.svc.Catalog.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, job)
}

func (s *Server) createJob(c fiber.Ctx) error {
	var in catalog.JobInput
	if err := bind(c, &in); err != nil {
		return err
	}
	job, err := s.svc.Catalog.CreateJob(c.Context(), in)
	if err != nil {
		return err
	}
	return created(c, job)
}

func (s *Server) updateJob(c fiber.Ctx) error {
	var in catalog.JobInput
	if err := bind(c, &in); err != nil {
		return err
	}
	job, err := s.svc.Catalog.UpdateJob(c.Context(), c.Params("id"), in)
	if err != nil {
		return err
	}
	return ok(c, job)
}

func (s *Server) listCompanies(c fiber.Ctx) error {
	list, err := s.svc.Catalog.ListCompanies(c.Context())
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) getCompany(c fiber.Ctx) error {
	company, err := s.svc.Catalog.GetCompany(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, company)
}

func (s *Server) createCompany(c fiber.Ctx) error {
	var in catalog.CompanyInput
	if err := bind(c, &in); err != nil {
		return err
	}
	company, err := s.svc.Catalog.CreateCompany(c.Context(), in)
	if err != nil {
		return err
	}
	return created(c, company)
}

func (s *Server) updateCompany(c fiber.Ctx) error {
	var in catalog.CompanyInput
	if err := bind(c, &in); err != nil {
		return err
	}
	company, err := s.svc.Catalog.UpdateCompany(c.Context(), c.Params("id"), in)
	if err != nil {
		return err
	}
	return ok(c, company)
}

func (s *Server) listResources(c fiber.Ctx) error {
	filter := model.ResourceFilter{Type: model.ResourceType(strings.TrimSpace(c.Query("type")))}
	if tags := c.Query("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}

	list, err := s.svc.Catalog.ListResources(c.Context(), filter)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) getResource(c fiber.Ctx) error {
	resource, err := s.svc.Catalog.GetResource(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, resource)
}

func (s *Server) createResource(c fiber.Ctx) error {
	var in catalog.ResourceInput
	if err := bind(c, &in); err != nil {
		return err
	}
	resource, err := s.svc.Catalog.CreateResource(c.Context(), in)
	if err != nil {
		return err
	}
	return created(c, resource)
}

func (s *Server) updateResource(c fiber.Ctx) error {
	var in catalog.ResourceInput
	if err := bind(c, &in); err != nil {
		return err
	}
	resource, err := s.svc.Catalog.UpdateResource(c.Context(), c.Params("id"), in)
	if err != nil {
		return err
	}
	return ok(c, resource)
}
