package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/course-planner-api/pkg/database"
	"github.com/arnavshah/course-planner-api/pkg/export"
	"github.com/arnavshah/course-planner-api/pkg/models"
	"github.com/arnavshah/course-planner-api/pkg/poolio"
)

var (
	errDuplicateSection = errors.New("section already exists in this pool")
	errSectionNotFound  = errors.New("section not found in this pool")
	errSingleSection    = errors.New("body must be a single section object")
)

func poolResponse(p *database.SavedPool, sections []models.CourseSection) gin.H {
	return gin.H{
		"id":            p.ID,
		"name":          p.Name,
		"section_count": p.SectionCount,
		"created_at":    p.CreatedAt,
		"updated_at":    p.UpdatedAt,
		"courses":       sections,
	}
}

// pool loads the addressed pool of the current key and its sections
func (h *Handler) pool(c *gin.Context) (*database.SavedPool, []models.CourseSection, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, nil, false
	}
	p, err := h.Pools.Get(currentKey(c).ID, id)
	if err != nil {
		h.errorResponse(c, err)
		return nil, nil, false
	}
	sections, err := p.DecodeSections()
	if err != nil {
		h.errorResponse(c, err)
		return nil, nil, false
	}
	return p, sections, true
}

func (h *Handler) mutate(c *gin.Context, fn func([]models.CourseSection) ([]models.CourseSection, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.Pools.Mutate(currentKey(c).ID, id, fn)
	switch {
	case errors.Is(err, errDuplicateSection):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, errSectionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.errorResponse(c, err)
		return
	}
	sections, err := p.DecodeSections()
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, poolResponse(p, sections))
}

// CreatePool stores an inline pool
func (h *Handler) CreatePool(c *gin.Context) {
	var req struct {
		Name    string          `json:"name" binding:"required"`
		Courses json.RawMessage `json:"courses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sections, err := decodeCourses(req.Courses)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	p, err := h.Pools.Create(currentKey(c).ID, req.Name, sections)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	h.RecordUsage(c, len(sections), 0)
	c.JSON(http.StatusCreated, poolResponse(p, sections))
}

// ImportPool stores a pool uploaded as a JSON or CSV file. A malformed file
// stores nothing.
func (h *Handler) ImportPool(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer f.Close()

	sections, err := poolio.Load(fh.Filename, f)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
	}
	p, err := h.Pools.Create(currentKey(c).ID, name, sections)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	h.RecordUsage(c, len(sections), 0)
	c.JSON(http.StatusCreated, poolResponse(p, sections))
}

// ListPools lists the pools of the current key
func (h *Handler) ListPools(c *gin.Context) {
	pools, err := h.Pools.List(currentKey(c).ID)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pools": pools})
}

// GetPool returns one pool with its sections
func (h *Handler) GetPool(c *gin.Context) {
	p, sections, ok := h.pool(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, poolResponse(p, sections))
}

// ExportPool downloads a pool as JSON (default) or CSV
func (h *Handler) ExportPool(c *gin.Context) {
	p, sections, ok := h.pool(c)
	if !ok {
		return
	}

	var data []byte
	var err error
	contentType := "application/json"
	ext := "json"
	switch c.DefaultQuery("format", "json") {
	case "json":
		data, err = poolio.SaveJSON(sections)
	case "csv":
		data, err = poolio.SaveCSV(sections)
		contentType, ext = "text/csv", "csv"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or csv"})
		return
	}
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.Name+"."+ext))
	c.Data(http.StatusOK, contentType+"; charset=utf-8", data)
}

// ReplacePool replaces every section of a pool
func (h *Handler) ReplacePool(c *gin.Context) {
	var req struct {
		Courses json.RawMessage `json:"courses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sections, err := decodeCourses(req.Courses)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	h.mutate(c, func([]models.CourseSection) ([]models.CourseSection, error) {
		return sections, nil
	})
}

// DeletePool removes a pool
func (h *Handler) DeletePool(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Pools.Delete(currentKey(c).ID, id); err != nil {
		h.errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pool deleted"})
}

// singleObject returns the body if it holds exactly one JSON object
func singleObject(raw []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var record json.RawMessage
	if err := dec.Decode(&record); err != nil {
		return nil, errSingleSection
	}
	if len(record) == 0 || record[0] != '{' {
		return nil, errSingleSection
	}
	if len(bytes.TrimSpace(raw[dec.InputOffset():])) > 0 {
		return nil, errSingleSection
	}
	return record, nil
}

// AddSection appends one section; a repeated (name, class_id) is rejected
func (h *Handler) AddSection(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := singleObject(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	parsed, err := decodeCourses(json.RawMessage("[" + string(record) + "]"))
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	if len(parsed) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errSingleSection.Error()})
		return
	}
	section := parsed[0]

	h.mutate(c, func(sections []models.CourseSection) ([]models.CourseSection, error) {
		for _, s := range sections {
			if s.Key() == section.Key() {
				return nil, fmt.Errorf("%w: %s class %s", errDuplicateSection, section.Name, section.ClassID)
			}
		}
		return append(sections, section), nil
	})
}

// UpdateSection changes the flags and priority of one section
func (h *Handler) UpdateSection(c *gin.Context) {
	var req struct {
		Priority           *int  `json:"priority"`
		MustSelect         *bool `json:"must_select"`
		TemporarilyExclude *bool `json:"temporarily_exclude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, classID := c.Param("name"), c.Param("classID")

	h.mutate(c, func(sections []models.CourseSection) ([]models.CourseSection, error) {
		for i := range sections {
			if sections[i].Name != name || sections[i].ClassID != classID {
				continue
			}
			if req.Priority != nil {
				sections[i].Priority = *req.Priority
			}
			if req.MustSelect != nil {
				sections[i].MustSelect = *req.MustSelect
			}
			if req.TemporarilyExclude != nil {
				sections[i].TemporarilyExclude = *req.TemporarilyExclude
			}
			return sections, nil
		}
		return nil, errSectionNotFound
	})
}

// DeleteSection removes one section
func (h *Handler) DeleteSection(c *gin.Context) {
	name, classID := c.Param("name"), c.Param("classID")
	h.mutate(c, func(sections []models.CourseSection) ([]models.CourseSection, error) {
		for i, s := range sections {
			if s.Name == name && s.ClassID == classID {
				return append(sections[:i], sections[i+1:]...), nil
			}
		}
		return nil, errSectionNotFound
	})
}

type poolGenerateInput struct {
	Budget *int   `json:"budget" form:"budget"`
	Policy string `json:"policy" form:"policy"`
}

// bindPoolGenerate reads budget and policy from the query string and, when
// present, the JSON body. Body values win.
func bindPoolGenerate(c *gin.Context) (poolGenerateInput, bool) {
	var input poolGenerateInput
	if err := c.ShouldBindQuery(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return input, false
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return input, false
		}
	}
	return input, true
}

// GeneratePool generates candidates from a stored pool snapshot
func (h *Handler) GeneratePool(c *gin.Context) {
	input, ok := bindPoolGenerate(c)
	if !ok {
		return
	}
	p, sections, ok := h.pool(c)
	if !ok {
		return
	}

	res, message, ok := h.runGeneration(c, sections, input.Budget, input.Policy, &p.ID)
	if !ok {
		return
	}
	resp := res.Response()
	resp.Message = message
	c.JSON(http.StatusOK, resp)
}

// GeneratePoolWorkbook generates candidates from a stored pool and returns
// them as an xlsx workbook.
func (h *Handler) GeneratePoolWorkbook(c *gin.Context) {
	input, ok := bindPoolGenerate(c)
	if !ok {
		return
	}
	limit := h.Config.Planner.ExportLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	p, sections, ok := h.pool(c)
	if !ok {
		return
	}
	res, _, ok := h.runGeneration(c, sections, input.Budget, input.Policy, &p.ID)
	if !ok {
		return
	}

	f, err := export.Workbook(res.All(), limit)
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.Name+"-timetables.xlsx"))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// GenerateSummaryCSV returns the ranked candidates of a stored pool as CSV
func (h *Handler) GenerateSummaryCSV(c *gin.Context) {
	input, ok := bindPoolGenerate(c)
	if !ok {
		return
	}
	p, sections, ok := h.pool(c)
	if !ok {
		return
	}
	res, _, ok := h.runGeneration(c, sections, input.Budget, input.Policy, &p.ID)
	if !ok {
		return
	}
	data, err := export.SummaryCSV(res.All())
	if err != nil {
		h.errorResponse(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.Name+"-timetables.csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
