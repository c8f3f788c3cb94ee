package feed

import (
	"fmt"
	"io"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/okian/zonewatch/internal/domain/model"
)

// DecodeGTFSRT decodes a GTFS-realtime VehiclePositions feed. The vehicle
// id falls back to the label, then the entity id. A position without its
// own timestamp takes the header timestamp.
func DecodeGTFSRT(layout string, loc *time.Location) Decoder {
	if layout == "" {
		layout = time.DateTime
	}
	if loc == nil {
		loc = time.UTC
	}
	return func(r io.Reader) ([]model.Raw, error) {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read: %w", ErrDecode, err)
		}
		var fm gtfsrtpb.FeedMessage
		if err := proto.Unmarshal(body, &fm); err != nil {
			return nil, fmt.Errorf("%w: gtfs-rt: %w", ErrDecode, err)
		}

		headerTS := fm.GetHeader().GetTimestamp()
		raws := make([]model.Raw, 0, len(fm.GetEntity()))
		for _, e := range fm.GetEntity() {
			vp := e.GetVehicle()
			if vp == nil || e.GetIsDeleted() {
				continue
			}
			raw := model.Raw{VehicleID: vehicleID(e)}
			if pos := vp.GetPosition(); pos != nil {
				raw.Latitude = model.CoordOf(float64(pos.GetLatitude()))
				raw.Longitude = model.CoordOf(float64(pos.GetLongitude()))
			}
			ts := vp.GetTimestamp()
			if ts == 0 {
				ts = headerTS
			}
			if ts != 0 {
				raw.ObservedAt = time.Unix(int64(ts), 0).In(loc).Format(layout)
			}
			raws = append(raws, raw)
		}
		return raws, nil
	}
}

func vehicleID(e *gtfsrtpb.FeedEntity) string {
	d := e.GetVehicle().GetVehicle()
	if id := d.GetId(); id != "" {
		return id
	}
	if label := d.GetLabel(); label != "" {
		return label
	}
	return e.GetId()
}
