package node

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"sensorfusion/internal/reconcile"
	"sensorfusion/internal/sensor"
)

// snapshotToProto converts a sensor.Snapshot to its wire Struct.
func snapshotToProto(s sensor.Snapshot) *structpb.Struct {
	values := make([]*structpb.Value, len(s.Values))
	for i, v := range s.Values {
		values[i] = structpb.NewNumberValue(v)
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"sensor_id": structpb.NewStringValue(s.SensorID),
			"from":      structpb.NewStringValue(s.From.UTC().Format(time.RFC3339Nano)),
			"to":        structpb.NewStringValue(s.To.UTC().Format(time.RFC3339Nano)),
			"values":    structpb.NewListValue(&structpb.ListValue{Values: values}),
		},
	}
}

// protoToSnapshot converts a wire Struct to a sensor.Snapshot.
func protoToSnapshot(pb *structpb.Struct) (sensor.Snapshot, error) {
	fields := pb.GetFields()

	from, err := parseTime(fields, "from")
	if err != nil {
		return sensor.Snapshot{}, err
	}
	to, err := parseTime(fields, "to")
	if err != nil {
		return sensor.Snapshot{}, err
	}

	list := fields["values"].GetListValue().GetValues()
	values := make([]float64, len(list))
	for i, v := range list {
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return sensor.Snapshot{}, fmt.Errorf("snapshot value %d is not a number", i)
		}
		values[i] = v.GetNumberValue()
	}

	return sensor.Snapshot{
		SensorID: fields["sensor_id"].GetStringValue(),
		From:     from,
		To:       to,
		Values:   values,
	}, nil
}

// resultToProto converts a reconcile.Result to its wire Struct. A NaN average
// is sent as null.
func resultToProto(r reconcile.Result) *structpb.Struct {
	avg := structpb.NewNullValue()
	if !math.IsNaN(r.AveragedValue) && !math.IsInf(r.AveragedValue, 0) {
		avg = structpb.NewNumberValue(r.AveragedValue)
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"success":        structpb.NewBoolValue(r.Success),
			"at":             structpb.NewStringValue(r.At.UTC().Format(time.RFC3339Nano)),
			"averaged_value": avg,
			"message":        structpb.NewStringValue(r.Message),
		},
	}
}

// protoToResult converts a wire Struct to a reconcile.Result.
func protoToResult(pb *structpb.Struct) (reconcile.Result, error) {
	fields := pb.GetFields()

	at, err := parseTime(fields, "at")
	if err != nil {
		return reconcile.Result{}, err
	}

	avg := math.NaN()
	if v, ok := fields["averaged_value"].GetKind().(*structpb.Value_NumberValue); ok {
		avg = v.NumberValue
	}

	return reconcile.Result{
		Success:       fields["success"].GetBoolValue(),
		At:            at,
		AveragedValue: avg,
		Message:       fields["message"].GetStringValue(),
	}, nil
}

func parseTime(fields map[string]*structpb.Value, key string) (time.Time, error) {
	raw := fields[key].GetStringValue()
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %q", key)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %q: %w", key, err)
	}
	return t, nil
}
