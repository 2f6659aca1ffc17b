package server

import (
	"net/url"

	"github.com/gofiber/fiber/v3"

	"github.com/kaziconnect/kaziconnect/internal/model"
	"github.com/kaziconnect/kaziconnect/internal/profile"
)

type profileResponse struct {
	Profile    *model.Profile `json:"profile"`
	Completion int            `json:"completion"`
}

type skillsRequest struct {
	Skills []string `json:"skills"`
}

type strengthsRequest struct {
	Strengths []string `json:"strengths"`
}

func withCompletion(p *model.Profile) profileResponse {
	return profileResponse{Profile: p, Completion: profile.Completion(*p)}
}

func (s *Server) getProfile(c fiber.Ctx) error {
	p, err := s.svc.Profile.Get(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, withCompletion(p))
}

func (s *Server) updateProfile(c fiber.Ctx) error {
	var in profile.Input
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := s.svc.Profile.Update(c.Context(), userID(c), in)
	if err != nil {
		return err
	}
	return ok(c, withCompletion(p))
}

func (s *Server) addSkills(c fiber.Ctx) error {
	var req skillsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.Profile.AddSkills(c.Context(), userID(c), req.Skills)
	if err != nil {
		return err
	}
	return ok(c, withCompletion(p))
}

func (s *Server) removeSkill(c fiber.Ctx) error {
	skill, err := url.PathUnescape(c.Params("skill"))
	if err != nil {
		return NewAppError(fiber.StatusBadRequest, "Invalid skill", nil, err)
	}
	p, err := s.svc.Profile.RemoveSkill(c.Context(), userID(c), skill)
	if err != nil {
		return err
	}
	return ok(c, withCompletion(p))
}

func (s *Server) appendStrengths(c fiber.Ctx) error {
	var req strengthsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.svc.Profile.AppendStrengths(c.Context(), userID(c), req.Strengths)
	if err != nil {
		return err
	}
	return ok(c, withCompletion(p))
}

func (s *Server) listApplications(c fiber.Ctx) error {
	list, err := s.svc.Profile.Applications(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) apply(c fiber.Ctx) error {
	var in profile.ActionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	action, err := s.svc.Profile.Apply(c.Context(), userID(c), in)
	if err != nil {
		return err
	}
	return created(c, action)
}

func (s *Server) listSavedJobs(c fiber.Ctx) error {
	list, err := s.svc.Profile.SavedJobs(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (s *Server) saveJob(c fiber.Ctx) error {
	var in profile.ActionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	action, err := s.svc.Profile.Save(c.Context(), userID(c), in)
	if err != nil {
		return err
	}
	return created(c, action)
}
