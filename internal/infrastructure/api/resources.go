package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/drivemaster/backoffice/internal/domain/finance"
	"github.com/drivemaster/backoffice/internal/domain/identity"
	"github.com/drivemaster/backoffice/internal/domain/school"
	"github.com/drivemaster/backoffice/internal/domain/shared"
)

// ListQuery shapes the common query parameters of the collection endpoints.
// Filters carries endpoint-specific parameters such as contrato_id or
// fecha_inicio.
type ListQuery struct {
	Page    int
	Limit   int
	Search  string
	Filters map[string]string
}

func (q ListQuery) params() map[string]string {
	params := make(map[string]string, len(q.Filters)+3)
	for k, v := range q.Filters {
		params[k] = v
	}
	if q.Page > 0 {
		params["page"] = strconv.Itoa(q.Page)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	return params
}

func list[T any](ctx context.Context, c *Client, endpoint string, q ListQuery) ([]T, error) {
	payload, err := c.Get(ctx, endpoint, q.params())
	if err != nil {
		return nil, err
	}
	return DecodeList[T](payload)
}

func getOne[T any](ctx context.Context, c *Client, endpoint string, id int64) (T, error) {
	var zero T
	payload, err := c.Get(ctx, fmt.Sprintf("%s/%d", endpoint, id), nil)
	if err != nil {
		return zero, err
	}
	return DecodeOne[T](payload)
}

func create[T any](ctx context.Context, c *Client, endpoint string, body T) (T, error) {
	var zero T
	payload, err := c.Post(ctx, endpoint, body)
	if err != nil {
		return zero, err
	}
	return DecodeOne[T](payload)
}

func update[T any](ctx context.Context, c *Client, endpoint string, id int64, body T) (T, error) {
	var zero T
	payload, err := c.Put(ctx, fmt.Sprintf("%s/%d", endpoint, id), body)
	if err != nil {
		return zero, err
	}
	return DecodeOne[T](payload)
}

func remove(ctx context.Context, c *Client, endpoint string, id int64) error {
	_, err := c.Delete(ctx, fmt.Sprintf("%s/%d", endpoint, id))
	return err
}

// Clients

func (c *Client) ListClients(ctx context.Context, q ListQuery) ([]school.Client, error) {
	return list[school.Client](ctx, c, "/clientes", q)
}

func (c *Client) GetClient(ctx context.Context, id int64) (school.Client, error) {
	return getOne[school.Client](ctx, c, "/clientes", id)
}

func (c *Client) CreateClient(ctx context.Context, client school.Client) (school.Client, error) {
	return create(ctx, c, "/clientes", client)
}

func (c *Client) UpdateClient(ctx context.Context, id int64, client school.Client) (school.Client, error) {
	return update(ctx, c, "/clientes", id, client)
}

func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return remove(ctx, c, "/clientes", id)
}

// Users

func (c *Client) ListUsers(ctx context.Context, q ListQuery) ([]identity.User, error) {
	return list[identity.User](ctx, c, "/user", q)
}

func (c *Client) CreateUser(ctx context.Context, user identity.User) (identity.User, error) {
	return create(ctx, c, "/user", user)
}

func (c *Client) UpdateUser(ctx context.Context, id int64, user identity.User) (identity.User, error) {
	return update(ctx, c, "/user", id, user)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return remove(ctx, c, "/user", id)
}

// Roles

func (c *Client) ListRoles(ctx context.Context, q ListQuery) ([]identity.Role, error) {
	return list[identity.Role](ctx, c, "/roles", q)
}

func (c *Client) GetRole(ctx context.Context, id int64) (identity.Role, error) {
	return getOne[identity.Role](ctx, c, "/roles", id)
}

func (c *Client) CreateRole(ctx context.Context, role identity.Role) (identity.Role, error) {
	return create(ctx, c, "/roles", role)
}

func (c *Client) UpdateRole(ctx context.Context, id int64, role identity.Role) (identity.Role, error) {
	return update(ctx, c, "/roles", id, role)
}

func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return remove(ctx, c, "/roles", id)
}

// Instructors

func (c *Client) ListInstructors(ctx context.Context, q ListQuery) ([]school.Instructor, error) {
	return list[school.Instructor](ctx, c, "/instructores", q)
}

func (c *Client) GetInstructor(ctx context.Context, id int64) (school.Instructor, error) {
	return getOne[school.Instructor](ctx, c, "/instructores", id)
}

func (c *Client) CreateInstructor(ctx context.Context, instructor school.Instructor) (school.Instructor, error) {
	return create(ctx, c, "/instructores", instructor)
}

func (c *Client) UpdateInstructor(ctx context.Context, id int64, instructor school.Instructor) (school.Instructor, error) {
	return update(ctx, c, "/instructores", id, instructor)
}

func (c *Client) DeleteInstructor(ctx context.Context, id int64) error {
	return remove(ctx, c, "/instructores", id)
}

// Contracts

func (c *Client) ListContracts(ctx context.Context, q ListQuery) ([]school.Contract, error) {
	return list[school.Contract](ctx, c, "/contratos", q)
}

func (c *Client) GetContract(ctx context.Context, id int64) (school.Contract, error) {
	return getOne[school.Contract](ctx, c, "/contratos", id)
}

func (c *Client) CreateContract(ctx context.Context, contract school.Contract) (school.Contract, error) {
	return create(ctx, c, "/contratos", contract)
}

func (c *Client) UpdateContract(ctx context.Context, id int64, contract school.Contract) (school.Contract, error) {
	return update(ctx, c, "/contratos", id, contract)
}

func (c *Client) DeleteContract(ctx context.Context, id int64) error {
	return remove(ctx, c, "/contratos", id)
}

// Agency sales

func (c *Client) ListAgencySales(ctx context.Context, q ListQuery) ([]school.AgencySale, error) {
	return list[school.AgencySale](ctx, c, "/gestoria-ventas", q)
}

func (c *Client) CreateAgencySale(ctx context.Context, sale school.AgencySale) (school.AgencySale, error) {
	return create(ctx, c, "/gestoria-ventas", sale)
}

// CreateAgencySaleWithMovement asks the backend to create the sale and its
// ledger entry in one transaction, instead of orchestrating both client-side.
func (c *Client) CreateAgencySaleWithMovement(ctx context.Context, sale school.AgencySale) (school.AgencySale, error) {
	payload, err := c.Post(ctx, "/gestoria-ventas/crear-con-movimiento", sale)
	if err != nil {
		return school.AgencySale{}, err
	}
	return DecodeOne[school.AgencySale](payload)
}

func (c *Client) UpdateAgencySale(ctx context.Context, id int64, sale school.AgencySale) (school.AgencySale, error) {
	return update(ctx, c, "/gestoria-ventas", id, sale)
}

func (c *Client) DeleteAgencySale(ctx context.Context, id int64) error {
	return remove(ctx, c, "/gestoria-ventas", id)
}

// Ledger movements

func (c *Client) ListLedgerEntries(ctx context.Context, q ListQuery) ([]finance.LedgerEntry, error) {
	return list[finance.LedgerEntry](ctx, c, "/movimientos-contables", q)
}

func (c *Client) CreateLedgerEntry(ctx context.Context, entry finance.LedgerEntry) (finance.LedgerEntry, error) {
	return create(ctx, c, "/movimientos-contables", entry)
}

func (c *Client) UpdateLedgerEntry(ctx context.Context, id int64, entry finance.LedgerEntry) (finance.LedgerEntry, error) {
	return update(ctx, c, "/movimientos-contables", id, entry)
}

func (c *Client) DeleteLedgerEntry(ctx context.Context, id int64) error {
	return remove(ctx, c, "/movimientos-contables", id)
}

// Instructor schedules

func (c *Client) ListInstructorSchedules(ctx context.Context, instructorID int64) ([]school.InstructorSchedule, error) {
	q := ListQuery{Filters: map[string]string{"instructor_id": strconv.FormatInt(instructorID, 10)}}
	return list[school.InstructorSchedule](ctx, c, "/horarios-instructores", q)
}

func (c *Client) CreateInstructorSchedule(ctx context.Context, slot school.InstructorSchedule) (school.InstructorSchedule, error) {
	return create(ctx, c, "/horarios-instructores", slot)
}

func (c *Client) UpdateInstructorSchedule(ctx context.Context, id int64, slot school.InstructorSchedule) (school.InstructorSchedule, error) {
	return update(ctx, c, "/horarios-instructores", id, slot)
}

func (c *Client) DeleteInstructorSchedule(ctx context.Context, id int64) error {
	return remove(ctx, c, "/horarios-instructores", id)
}

// Contract blocks

func (c *Client) ListContractBlocks(ctx context.Context, contractID int64) ([]school.ScheduleBlock, error) {
	q := ListQuery{Filters: map[string]string{"contrato_id": strconv.FormatInt(contractID, 10)}}
	return list[school.ScheduleBlock](ctx, c, "/bloques-contrato", q)
}

func (c *Client) CreateContractBlock(ctx context.Context, block school.ScheduleBlock) (school.ScheduleBlock, error) {
	return create(ctx, c, "/bloques-contrato", block)
}

func (c *Client) UpdateContractBlock(ctx context.Context, id int64, block school.ScheduleBlock) (school.ScheduleBlock, error) {
	return update(ctx, c, "/bloques-contrato", id, block)
}

func (c *Client) DeleteContractBlock(ctx context.Context, id int64) error {
	return remove(ctx, c, "/bloques-contrato", id)
}

// Uploads

// PhotoType selects which instructor photo slot an upload targets.
type PhotoType string

const (
	PhotoProfile PhotoType = "perfil"
	PhotoVehicle PhotoType = "vehicle"
)

func (t PhotoType) valid() bool {
	return t == PhotoProfile || t == PhotoVehicle
}

// UploadResult is the JSON payload returned by the upload endpoints.
type UploadResult struct {
	URL string `json:"url"`
}

// UploadFile sends a multipart file to the generic upload endpoint.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (UploadResult, error) {
	return c.uploadMultipart(ctx, "/upload", filename, content)
}

// UploadInstructorPhoto uploads an instructor photo under the given type
// sub-path. The backend must answer with a JSON object carrying the stored
// photo URL; a plain-text success body is an error because callers need that
// URL.
func (c *Client) UploadInstructorPhoto(ctx context.Context, photoType PhotoType, filename string, content io.Reader) (UploadResult, error) {
	if !photoType.valid() {
		return UploadResult{}, shared.NewDomainError("INVALID_PHOTO_TYPE",
			fmt.Sprintf("photo type must be %q or %q, got %q", PhotoProfile, PhotoVehicle, photoType))
	}
	return c.uploadMultipart(ctx, "/instructores/upload-photo/"+string(photoType), filename, content)
}

// RemoveInstructorPhoto clears the photo of the given type from an
// instructor record.
func (c *Client) RemoveInstructorPhoto(ctx context.Context, id int64, photoType PhotoType) error {
	if !photoType.valid() {
		return shared.NewDomainError("INVALID_PHOTO_TYPE",
			fmt.Sprintf("photo type must be %q or %q, got %q", PhotoProfile, PhotoVehicle, photoType))
	}
	_, err := c.Request(ctx, fmt.Sprintf("/instructores/%d/remove-photo/%s", id, photoType),
		RequestOptions{Method: http.MethodPatch})
	return err
}

func (c *Client) uploadMultipart(ctx context.Context, endpoint, filename string, content io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return UploadResult{}, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	payload, err := c.Request(ctx, endpoint, RequestOptions{
		Method:      http.MethodPost,
		RawBody:     &buf,
		ContentType: writer.FormDataContentType(),
	})
	if err != nil {
		return UploadResult{}, err
	}
	if !json.Valid(payload) {
		return UploadResult{}, shared.NewDomainError("UPLOAD_BAD_RESPONSE",
			fmt.Sprintf("upload returned non-JSON response: %s", payload))
	}
	return DecodeOne[UploadResult](payload)
}
