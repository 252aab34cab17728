package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/railzwaylabs/caremarket/internal/audit/domain"
)

const maxAuditExportRange = 90 * 24 * time.Hour

// ExportAuditLogs godoc
// @Summary      Export audit logs
// @Description  Exports audit entries between start_date and end_date (inclusive) as CSV or JSON. The SHA-256 of the body is returned in X-Audit-Export-Checksum.
// @Tags         audit
// @Produce      text/csv
// @Produce      json
// @Param        start_date  query     string  true   "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  true   "End date (YYYY-MM-DD)"
// @Param        format      query     string  false  "csv or json"
// @Param        actions     query     string  false  "Comma separated action filter"
// @Success      200         {file}    binary
// @Failure      400         {object}  ErrorResponse
// @Router       /v1/audit/export [get]
func (s *Server) ExportAuditLogs(c *gin.Context) {
	startDateStr := strings.TrimSpace(c.Query("start_date"))
	endDateStr := strings.TrimSpace(c.Query("end_date"))
	formatStr := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))
	actionsStr := strings.TrimSpace(c.Query("actions"))

	if startDateStr == "" || endDateStr == "" {
		AbortWithError(c, newValidationError("start_date", "invalid_export_range", "start_date and end_date are required."))
		return
	}

	startDate, err := time.Parse(time.DateOnly, startDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_export_range", "start_date must be YYYY-MM-DD."))
		return
	}
	endDate, err := time.Parse(time.DateOnly, endDateStr)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_export_range", "end_date must be YYYY-MM-DD."))
		return
	}
	// end_date is inclusive
	endDate = endDate.Add(24 * time.Hour)

	if !endDate.After(startDate) {
		AbortWithError(c, auditdomain.ErrInvalidExportRange)
		return
	}
	if endDate.Sub(startDate) > maxAuditExportRange {
		AbortWithError(c, newValidationError("end_date", "invalid_export_range", "An export covers at most 90 days."))
		return
	}

	var format auditdomain.ExportFormat
	switch formatStr {
	case "csv":
		format = auditdomain.ExportFormatCSV
	case "json":
		format = auditdomain.ExportFormatJSON
	default:
		AbortWithError(c, auditdomain.ErrInvalidExportFormat)
		return
	}

	var actions []string
	if actionsStr != "" {
		for _, a := range strings.Split(actionsStr, ",") {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, a)
			}
		}
	}

	result, err := s.auditExportSvc.Export(c.Request.Context(), auditdomain.ExportRequest{
		StartDate: startDate,
		EndDate:   endDate,
		Format:    format,
		Actions:   actions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("X-Audit-Export-Checksum", result.Checksum)
	c.Header("X-Audit-Export-Count", strconv.Itoa(result.Count))

	var contentType, filename string
	switch result.Format {
	case auditdomain.ExportFormatCSV:
		contentType = "text/csv"
		filename = "audit_export_" + startDateStr + "_" + endDateStr + ".csv"
	case auditdomain.ExportFormatJSON:
		contentType = "application/json"
		filename = "audit_export_" + startDateStr + "_" + endDateStr + ".json"
	}

	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, contentType, result.Data)
}
