package server

import (
	"github.com/gofiber/fiber/v2"
)

type askRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type pulseRequest struct {
	Content string `json:"content" validate:"required"`
}

// Ask handles POST /api/whys
func (s *Server) Ask(c *fiber.Ctx) error {
	var req askRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	why, err := s.whyService.Ask(c.UserContext(), currentUserID(c), req.Title, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(why)
}

// ListWhys handles GET /api/whys?cursor=&limit=
func (s *Server) ListWhys(c *fiber.Ctx) error {
	page, err := s.whyService.ListWhys(c.UserContext(), currentUserID(c), c.Query("cursor"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// AddPulse handles POST /api/whys/:id/pulses
func (s *Server) AddPulse(c *fiber.Ctx) error {
	whyID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req pulseRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	pulse, err := s.whyService.AddPulse(c.UserContext(), whyID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pulse)
}

// ListPulses handles GET /api/whys/:id/pulses
func (s *Server) ListPulses(c *fiber.Ctx) error {
	whyID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	pulses, err := s.whyService.ListPulses(c.UserContext(), whyID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pulses)
}
