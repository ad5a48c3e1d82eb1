package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivemaster/backoffice/internal/domain/school"
	"github.com/drivemaster/backoffice/internal/domain/shared"
)

func TestListQuery_Params(t *testing.T) {
	q := ListQuery{Page: 2, Limit: 50, Search: "ana", Filters: map[string]string{"contrato_id": "7"}}
	params := q.params()
	assert.Equal(t, map[string]string{
		"page":        "2",
		"limit":       "50",
		"search":      "ana",
		"contrato_id": "7",
	}, params)

	assert.Empty(t, ListQuery{}.params())
}

func TestListContracts_DecodesWrappedResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contratos", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":1,"cliente_id":2,"total":"200","total_instructor":"80","fecha_inicio":"2026-02-01","moneda":"USD","metodo_pago":"Caja"}]}`))
	}))

	contracts, err := client.ListContracts(context.Background(), ListQuery{Limit: 20})
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "200", contracts[0].Total.String())
}

func TestCreateClient_RoundTrip(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/clientes", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"nombre":"Ana"`)
		w.Write([]byte(`{"id":11,"nombre":"Ana"}`))
	}))

	created, err := client.CreateClient(context.Background(), school.Client{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
}

func TestListContractBlocks_FiltersByContract(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("contrato_id"))
		w.Write([]byte(`[{"id":1,"contrato_id":7,"dia_semana":"lunes","hora_inicio":"09:00","hora_fin":"10:00"}]`))
	}))

	blocks, err := client.ListContractBlocks(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "lunes", blocks[0].DayOfWeek)
}

func TestUploadInstructorPhoto(t *testing.T) {
	t.Run("sends multipart file field", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/instructores/upload-photo/perfil", r.URL.Path)
			assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data; boundary=")

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "foto.jpg", header.Filename)
			content, _ := io.ReadAll(file)
			assert.Equal(t, "jpeg-bytes", string(content))

			w.Write([]byte(`{"url":"https://cdn.example.com/foto.jpg"}`))
		}))

		result, err := client.UploadInstructorPhoto(context.Background(), PhotoProfile, "foto.jpg", strings.NewReader("jpeg-bytes"))
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/foto.jpg", result.URL)
	})

	t.Run("rejects unknown photo type", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("server must not be called")
		}))

		_, err := client.UploadInstructorPhoto(context.Background(), "vehiculo", "foto.jpg", strings.NewReader("x"))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_PHOTO_TYPE", domainErr.Code)
	})

	t.Run("rejects non-JSON success body", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("foto guardada"))
		}))

		_, err := client.UploadInstructorPhoto(context.Background(), PhotoVehicle, "foto.jpg", strings.NewReader("x"))
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UPLOAD_BAD_RESPONSE", domainErr.Code)
	})
}

func TestRemoveInstructorPhoto(t *testing.T) {
	var method, path string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.RemoveInstructorPhoto(context.Background(), 4, PhotoVehicle))
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "/instructores/4/remove-photo/vehicle", path)
}

func TestCreateAgencySaleWithMovement_Endpoint(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gestoria-ventas/crear-con-movimiento", r.URL.Path)
		w.Write([]byte(`{"id":3,"cliente_id":1,"tipo_tramite":"licencia","fecha":"2026-03-10","monto":"45","moneda":"USD"}`))
	}))

	sale, err := client.CreateAgencySaleWithMovement(context.Background(), school.AgencySale{ClientID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sale.ID)
}
