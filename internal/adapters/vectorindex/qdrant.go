package vectorindex

import (
	"context"
	"fmt"
	"time"

	qpb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	payloadName        = "name"
	payloadDescription = "description"
	payloadCategory    = "category"
	payloadTags        = "tags"
	payloadAddress     = "address"
	payloadLat         = "lat"
	payloadLng         = "lng"
	payloadRating      = "rating"
	payloadReviewCount = "review_count"
	payloadPriority    = "priority"
	payloadIsPartner   = "is_partner"

	dialTimeout = 10 * time.Second
)

// Qdrant implements Index against a Qdrant gRPC endpoint.
type Qdrant struct {
	conn        *grpc.ClientConn
	points      qpb.PointsClient
	collections qpb.CollectionsClient
	collection  string
	dimension   int
}

// NewQdrant dials addr and ensures the collection exists with a cosine
// distance configuration of the given dimension.
func NewQdrant(ctx context.Context, addr, collection string, dimension int) (*Qdrant, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", ErrUnavailable, addr, err)
	}

	q := &Qdrant{
		conn:        conn,
		points:      qpb.NewPointsClient(conn),
		collections: qpb.NewCollectionsClient(conn),
		collection:  collection,
		dimension:   dimension,
	}
	if err := q.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context) error {
	resp, err := q.collections.CollectionExists(ctx, &qpb.CollectionExistsRequest{
		CollectionName: q.collection,
	})
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", ErrUnavailable, err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = q.collections.Create(ctx, &qpb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &qpb.VectorsConfig{
			Config: &qpb.VectorsConfig_Params{
				Params: &qpb.VectorParams{
					Size:     uint64(q.dimension),
					Distance: qpb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", ErrUnavailable, q.collection, err)
	}
	return nil
}

// Upsert implements Index.
func (q *Qdrant) Upsert(ctx context.Context, point Point) error {
	if len(point.Vector) == 0 {
		return ErrEmptyVector
	}
	if len(point.Vector) != q.dimension {
		return ErrDimensionMismatch
	}

	_, err := q.points.Upsert(ctx, &qpb.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qpb.PointStruct{
			{
				Id: pointID(point.ID),
				Vectors: &qpb.Vectors{
					VectorsOptions: &qpb.Vectors_Vector{
						Vector: &qpb.Vector{
							Vector: &qpb.Vector_Dense{
								Dense: &qpb.DenseVector{Data: point.Vector},
							},
						},
					},
				},
				Payload: encodePayload(point.Metadata),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("upserting point %s: %w", point.ID, err)
	}
	return nil
}

// UpdateMetadata implements Index. The stored vector is left untouched.
func (q *Qdrant) UpdateMetadata(ctx context.Context, id string, meta Metadata) error {
	_, err := q.points.SetPayload(ctx, &qpb.SetPayloadPoints{
		CollectionName: q.collection,
		Payload:        encodePayload(meta),
		PointsSelector: &qpb.PointsSelector{
			PointsSelectorOneOf: &qpb.PointsSelector_Points{
				Points: &qpb.PointsIdsList{
					Ids: []*qpb.PointId{pointID(id)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("updating payload for point %s: %w", id, err)
	}
	return nil
}

// Search implements Index.
func (q *Qdrant) Search(ctx context.Context, query Query) ([]Match, error) {
	if len(query.Vector) == 0 {
		return nil, ErrEmptyVector
	}
	if len(query.Vector) != q.dimension {
		return nil, ErrDimensionMismatch
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	req := &qpb.SearchPoints{
		CollectionName: q.collection,
		Vector:         query.Vector,
		Limit:          uint64(limit),
		WithPayload: &qpb.WithPayloadSelector{
			SelectorOptions: &qpb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if query.PartnersOnly {
		req.Filter = &qpb.Filter{
			Must: []*qpb.Condition{
				{
					ConditionOneOf: &qpb.Condition_Field{
						Field: &qpb.FieldCondition{
							Key: payloadIsPartner,
							Match: &qpb.Match{
								MatchValue: &qpb.Match_Boolean{Boolean: true},
							},
						},
					},
				},
			},
		}
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", q.collection, err)
	}

	matches := make([]Match, 0, len(resp.GetResult()))
	for _, scored := range resp.GetResult() {
		matches = append(matches, Match{
			ID:       scored.GetId().GetUuid(),
			Score:    scored.GetScore(),
			Metadata: decodePayload(scored.GetPayload()),
		})
	}
	return matches, nil
}

// Delete implements Index.
func (q *Qdrant) Delete(ctx context.Context, id string) error {
	_, err := q.points.Delete(ctx, &qpb.DeletePoints{
		CollectionName: q.collection,
		Points: &qpb.PointsSelector{
			PointsSelectorOneOf: &qpb.PointsSelector_Points{
				Points: &qpb.PointsIdsList{
					Ids: []*qpb.PointId{pointID(id)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting point %s: %w", id, err)
	}
	return nil
}

// Close implements Index.
func (q *Qdrant) Close() error {
	return q.conn.Close()
}

func pointID(id string) *qpb.PointId {
	return &qpb.PointId{PointIdOptions: &qpb.PointId_Uuid{Uuid: id}}
}

func encodePayload(meta Metadata) map[string]*qpb.Value {
	tags := make([]*qpb.Value, len(meta.Tags))
	for i, t := range meta.Tags {
		tags[i] = &qpb.Value{Kind: &qpb.Value_StringValue{StringValue: t}}
	}
	return map[string]*qpb.Value{
		payloadName:        {Kind: &qpb.Value_StringValue{StringValue: meta.Name}},
		payloadDescription: {Kind: &qpb.Value_StringValue{StringValue: meta.Description}},
		payloadCategory:    {Kind: &qpb.Value_StringValue{StringValue: meta.Category}},
		payloadTags:        {Kind: &qpb.Value_ListValue{ListValue: &qpb.ListValue{Values: tags}}},
		payloadAddress:     {Kind: &qpb.Value_StringValue{StringValue: meta.Address}},
		payloadLat:         {Kind: &qpb.Value_DoubleValue{DoubleValue: meta.Lat}},
		payloadLng:         {Kind: &qpb.Value_DoubleValue{DoubleValue: meta.Lng}},
		payloadRating:      {Kind: &qpb.Value_DoubleValue{DoubleValue: meta.Rating}},
		payloadReviewCount: {Kind: &qpb.Value_IntegerValue{IntegerValue: int64(meta.ReviewCount)}},
		payloadPriority:    {Kind: &qpb.Value_IntegerValue{IntegerValue: int64(meta.Priority)}},
		payloadIsPartner:   {Kind: &qpb.Value_BoolValue{BoolValue: meta.IsPartner}},
	}
}

func decodePayload(payload map[string]*qpb.Value) Metadata {
	meta := Metadata{
		Name:        payload[payloadName].GetStringValue(),
		Description: payload[payloadDescription].GetStringValue(),
		Category:    payload[payloadCategory].GetStringValue(),
		Address:     payload[payloadAddress].GetStringValue(),
		Lat:         payload[payloadLat].GetDoubleValue(),
		Lng:         payload[payloadLng].GetDoubleValue(),
		Rating:      payload[payloadRating].GetDoubleValue(),
		ReviewCount: int(payload[payloadReviewCount].GetIntegerValue()),
		Priority:    int(payload[payloadPriority].GetIntegerValue()),
		IsPartner:   payload[payloadIsPartner].GetBoolValue(),
	}
	for _, v := range payload[payloadTags].GetListValue().GetValues() {
		meta.Tags = append(meta.Tags, v.GetStringValue())
	}
	return meta
}
