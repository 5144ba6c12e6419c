package webapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
)

type RateLimitTestSuite struct {
	suite.Suite
	app *fiber.App
}

func (s *RateLimitTestSuite) SetupTest() {
	s.app = NewApp(Deps{})
}

func (s *RateLimitTestSuite) TestRateLimit() {
	// Send requests until the per-IP limit is hit.
	for i := range [51]int{} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp, err := s.app.Test(req, -1)
		s.Require().NoError(err)
		defer resp.Body.Close() //nolint:errcheck

		if i < 50 {
			s.Assert().Equal(fiber.StatusOK, resp.StatusCode, "Expected OK for request %d", i+1)
		} else {
			s.Assert().Equal(fiber.StatusTooManyRequests, resp.StatusCode, "Expected Too Many Requests for request %d", i+1)
		}
	}
}

func TestRateLimitTestSuite(t *testing.T) {
	suite.Run(t, new(RateLimitTestSuite))
}
