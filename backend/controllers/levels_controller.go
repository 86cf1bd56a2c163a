package controllers

import (
	"fmt"
	"strings"

	"mathboard/backend/gamification"
	"mathboard/backend/services"
	"mathboard/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/language"
)

type LevelsController struct {
	Service *services.ProgressService

	matcher   language.Matcher
	supported []language.Tag
}

// NewLevelsController serves titles in defaultLang, or the localized title
// when the client prefers localizedLang.
func NewLevelsController(svc *services.ProgressService, defaultLang, localizedLang string) (*LevelsController, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}
	loc, err := language.Parse(localizedLang)
	if err != nil {
		return nil, fmt.Errorf("parse localized language %q: %w", localizedLang, err)
	}

	supported := []language.Tag{def, loc}
	return &LevelsController{
		Service:   svc,
		matcher:   language.NewMatcher(supported),
		supported: supported,
	}, nil
}

type LevelView struct {
	Level      int    `json:"level"`
	Title      string `json:"title"`
	XPRequired int64  `json:"xpRequired"`
}

type LevelsResponse struct {
	Language string      `json:"language"`
	Levels   []LevelView `json:"levels"`
}

// ListLevels godoc
// @Summary List levels
// @Description Returns the level table with titles in the caller's language
// @Tags levels
// @Produce json
// @Param lang query string false "Language override"
// @Param Accept-Language header string false "Preferred language"
// @Success 200 {object} utils.SuccessResponse{data=LevelsResponse}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /levels [get]
func (lc *LevelsController) ListLevels(c *fiber.Ctx) error {
	localized := lc.prefersLocalized(c.Query("lang"), c.Get(fiber.HeaderAcceptLanguage))
	tag := lc.supported[0]
	if localized {
		tag = lc.supported[1]
	}

	defs := lc.Service.ListLevels()
	views := make([]LevelView, 0, len(defs))
	for _, d := range defs {
		views = append(views, LevelView{
			Level:      d.Level,
			Title:      title(d, localized),
			XPRequired: d.XPRequired,
		})
	}

	c.Vary(fiber.HeaderAcceptLanguage)
	c.Set(fiber.HeaderContentLanguage, tag.String())
	return utils.Success(c, fiber.StatusOK, LevelsResponse{Language: tag.String(), Levels: views})
}

// prefersLocalized checks an explicit lang query value first, then Accept-Language.
func (lc *LevelsController) prefersLocalized(query, header string) bool {
	if query = strings.TrimSpace(query); query != "" {
		if tag, err := language.Parse(query); err == nil {
			return lc.matches(tag)
		}
	}
	if header == "" {
		return false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return false
	}
	return lc.matches(tags...)
}

func (lc *LevelsController) matches(tags ...language.Tag) bool {
	_, index, confidence := lc.matcher.Match(tags...)
	return index == 1 && confidence != language.No
}

func title(d gamification.LevelDefinition, localized bool) string {
	if localized && d.TitleLocalized != "" {
		return d.TitleLocalized
	}
	return d.Title
}
