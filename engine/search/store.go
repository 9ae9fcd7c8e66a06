package search

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/partshub/fitment/engine/domain"
)

// VehiclePoint is one indexed vehicle: its id, embedding, and the payload
// served back on hits.
type VehiclePoint struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // brand, family, model, label
}

// Hit is a single similarity match.
type Hit struct {
	VehicleID string  `json:"vehicle_id"`
	Score     float32 `json:"score"`
	Label     string  `json:"label"`
}

// VectorStore owns all Qdrant operations for the vehicle index.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// NewVectorStore connects to Qdrant at the given gRPC address.
func NewVectorStore(addr, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("search: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection if it does not exist yet.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("search: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("search: create collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert indexes vehicle points. Points are keyed by vehicle id, so
// re-indexing a vehicle replaces its previous entry.
func (v *VectorStore) Upsert(ctx context.Context, points []VehiclePoint) error {
	if len(points) == 0 {
		return nil
	}

	pts := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		pts[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Embedding},
				},
			},
			Payload: toPayload(p.Payload),
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         pts,
	})
	if err != nil {
		return fmt.Errorf("search: upsert %d points: %w", len(points), err)
	}
	return nil
}

// DeleteVehicle removes a vehicle's point, for catalog deletions.
func (v *VectorStore) DeleteVehicle(ctx context.Context, vehicleID string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{fieldMatch("vehicle_id", vehicleID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("search: delete vehicle %s: %w", vehicleID, err)
	}
	return nil
}

// Query performs k-NN similarity search, optionally narrowed by payload
// filters such as brand.
func (v *VectorStore) Query(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]Hit, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, val := range filters {
			must = append(must, fieldMatch(k, val))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		h := Hit{Score: r.GetScore()}
		for k, val := range r.GetPayload() {
			switch k {
			case "vehicle_id":
				h.VehicleID = val.GetStringValue()
			case "label":
				h.Label = val.GetStringValue()
			}
		}
		if h.VehicleID == "" {
			h.VehicleID = r.GetId().GetUuid()
		}
		hits[i] = h
	}
	return hits, nil
}

// PointFor builds the index entry for one vehicle.
func PointFor(v domain.Vehicle, embedding []float32) VehiclePoint {
	return VehiclePoint{
		ID:        v.ID,
		Embedding: embedding,
		Payload: map[string]any{
			"vehicle_id": v.ID,
			"brand":      v.Brand,
			"family":     v.Family,
			"model":      v.Model,
			"label":      IndexText(v),
		},
	}
}

// IndexText renders the text a vehicle is embedded under.
func IndexText(v domain.Vehicle) string {
	s := v.Brand + " " + v.Model
	if v.Line != "" {
		s += " " + v.Line
	}
	if v.EngineType != "" {
		s += " " + v.EngineType
	}
	if v.Fuel != "" {
		s += " " + v.Fuel
	}
	if v.Transmission != "" {
		s += " " + v.Transmission
	}
	return s
}

func toPayload(m map[string]any) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(m))
	for k, val := range m {
		switch tv := val.(type) {
		case string:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return payload
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
