package wells

import (
	"encoding/json"
	"strconv"
	"strings"

	"wellwatch/internal/normalize"
	"wellwatch/internal/types"
)

// WellInput is one well in an upsert request. Clients send several
// spellings, so decoding goes through UnmarshalJSON.
type WellInput struct {
	ID            string
	OwnerID       string
	Name          string
	PanchayatName string
	VillageName   string
	ContactPhone  string
	Lat           *float64
	Lng           *float64
	Status        types.WellStatus
}

// UnmarshalJSON accepts snake_case and camelCase keys, coordinates either at
// the top level or under "location", and numeric strings for coordinates.
func (in *WellInput) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = WellInputFromMap(raw)
	return nil
}

// WellInputFromMap decodes a loosely typed well object.
func WellInputFromMap(raw map[string]any) WellInput {
	in := WellInput{
		ID:            firstString(raw, "id", "well_id", "wellId"),
		OwnerID:       firstString(raw, "owner_id", "ownerId", "user_id", "userId"),
		Name:          firstString(raw, "name", "well_name", "wellName"),
		PanchayatName: firstString(raw, "panchayat_name", "panchayatName", "panchayat"),
		VillageName:   firstString(raw, "village_name", "villageName", "village"),
		ContactPhone:  firstString(raw, "contact_phone", "contactPhone", "phone"),
		Status:        types.WellStatus(strings.ToLower(firstString(raw, "status"))),
	}

	if loc, ok := raw["location"].(map[string]any); ok {
		in.Lat = normalize.Value(firstOf(loc, "lat", "latitude"))
		in.Lng = normalize.Value(firstOf(loc, "lng", "lon", "longitude"))
	}
	if in.Lat == nil {
		in.Lat = normalize.Value(firstOf(raw, "lat", "latitude"))
	}
	if in.Lng == nil {
		in.Lng = normalize.Value(firstOf(raw, "lng", "lon", "longitude"))
	}
	return in
}

// UpsertRequest is the body of a well upsert: either {"wells": [...]} or a
// single well object.
type UpsertRequest struct {
	Wells []WellInput
}

func (r *UpsertRequest) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if list, ok := probe["wells"]; ok {
		return json.Unmarshal(list, &r.Wells)
	}
	var single WellInput
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	r.Wells = []WellInput{single}
	return nil
}

func firstOf(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// IngestRequestFromMap decodes a loosely typed reading payload as sent by
// devices, bulk files and the HTTP API. Metrics may sit at the top level or
// under "metrics". wellID, when non-empty, overrides any ID in the payload.
func IngestRequestFromMap(wellID string, raw map[string]any) IngestRequest {
	req := IngestRequest{
		WellID: wellID,
		Source: types.ReadingSource(strings.ToLower(firstString(raw, "source"))),
		Notes:  firstString(raw, "notes", "note", "comment"),
		Raw:    raw,
	}
	if req.WellID == "" {
		req.WellID = firstString(raw, "well_id", "wellId", "well")
	}
	if ts, ok := normalize.Timestamp(firstOf(raw, "recorded_at", "recordedAt", "timestamp", "ts", "time")); ok {
		req.RecordedAt = ts
	}
	if nested, ok := raw["metrics"].(map[string]any); ok {
		req.Raw = nested
	}
	return req
}
