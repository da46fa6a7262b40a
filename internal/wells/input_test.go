package wells

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellwatch/internal/types"
)

func TestUpsertRequest_Bulk(t *testing.T) {
	body := `{"wells":[
		{"name":"A","ownerId":"o1","location":{"lat":12.5,"lng":"77.25"},"panchayatName":"Hosur"},
		{"name":"B","owner_id":"o1","lat":"13","lng":78,"village":"Kolar","status":"Warning"}
	]}`

	var req UpsertRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.Len(t, req.Wells, 2)

	a := req.Wells[0]
	assert.Equal(t, "o1", a.OwnerID)
	assert.Equal(t, "Hosur", a.PanchayatName)
	require.NotNil(t, a.Lat)
	assert.Equal(t, 12.5, *a.Lat)
	assert.Equal(t, 77.25, *a.Lng)

	b := req.Wells[1]
	assert.Equal(t, "Kolar", b.VillageName)
	assert.Equal(t, 13.0, *b.Lat)
	assert.Equal(t, types.WellStatusWarning, b.Status)
}

func TestUpsertRequest_Single(t *testing.T) {
	var req UpsertRequest
	require.NoError(t, json.Unmarshal([]byte(`{"id":"w-9","name":"C","owner_id":"o2","panchayat_name":"Malur"}`), &req))
	require.Len(t, req.Wells, 1)
	assert.Equal(t, "w-9", req.Wells[0].ID)
	assert.Equal(t, "Malur", req.Wells[0].PanchayatName)
	assert.Nil(t, req.Wells[0].Lat)
}

func TestWellInputFromMap_BadCoordinates(t *testing.T) {
	in := WellInputFromMap(map[string]any{"name": "D", "lat": "", "lng": "east"})
	assert.Nil(t, in.Lat)
	assert.Nil(t, in.Lng)
}

func TestUpsertRequest_InvalidJSON(t *testing.T) {
	var req UpsertRequest
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &req))
}

func TestIngestRequestFromMap(t *testing.T) {
	raw := map[string]any{
		"wellId":    "w-9",
		"timestamp": "2026-03-01T10:00:00Z",
		"source":    "DEVICE",
		"notes":     " pump on ",
		"pH":        7.2,
	}

	req := IngestRequestFromMap("", raw)
	assert.Equal(t, "w-9", req.WellID)
	assert.Equal(t, types.SourceDevice, req.Source)
	assert.Equal(t, "pump on", req.Notes)
	assert.True(t, req.RecordedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7.2, req.Raw["pH"])
}

func TestIngestRequestFromMap_NestedMetricsAndOverride(t *testing.T) {
	raw := map[string]any{
		"well_id": "ignored",
		"metrics": map[string]any{"tds": 300.0},
	}

	req := IngestRequestFromMap("w-1", raw)
	assert.Equal(t, "w-1", req.WellID)
	assert.True(t, req.RecordedAt.IsZero())
	assert.Equal(t, types.ReadingSource(""), req.Source)
	assert.Equal(t, map[string]any{"tds": 300.0}, req.Raw)
}
