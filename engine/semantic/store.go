// Package semantic owns the lifecycle of the anime vector collection in
// Qdrant: session establishment, idempotent collection (re)creation,
// batched point ingestion, point retrieval, and k-nearest-neighbor search.
package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AniRecAI/anirec/engine/domain"
	"github.com/AniRecAI/anirec/pkg/fn"
)

// pointsAPI and collectionsAPI are the slices of the Qdrant gRPC surface
// the gateway actually uses; tests substitute mocks.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Gateway is the sole owner of all Qdrant operations for one collection.
// Connect must be called once before any other operation; every method
// guards against an unconnected session rather than dialing implicitly.
type Gateway struct {
	addr        string
	collection  string
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	logger      *slog.Logger
}

// New creates a Gateway for the collection at the given gRPC address.
// The session is not established until Connect.
func New(addr, collection string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{addr: addr, collection: collection, logger: logger}
}

// NewWithClients creates a connected Gateway over externally supplied
// clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *Gateway {
	return &Gateway{
		points:      points,
		collections: collections,
		collection:  collection,
		logger:      slog.Default(),
	}
}

// Connect establishes the Qdrant session and verifies it with a listing
// round trip. Calling it on an already connected gateway is a no-op.
func (g *Gateway) Connect(ctx context.Context) error {
	if g.points != nil {
		return nil
	}
	conn, err := grpc.NewClient(g.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("semantic: dial %s: %w: %v", g.addr, domain.ErrStoreUnreachable, err)
	}
	points := pb.NewPointsClient(conn)
	collections := pb.NewCollectionsClient(conn)
	if _, err := collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		conn.Close()
		return fmt.Errorf("semantic: handshake %s: %w: %v", g.addr, domain.ErrStoreUnreachable, err)
	}
	g.conn = conn
	g.points = points
	g.collections = collections
	g.logger.Info("qdrant session established", "addr", g.addr, "collection", g.collection)
	return nil
}

// Close closes the underlying gRPC connection.
func (g *Gateway) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

func (g *Gateway) session() error {
	if g.points == nil || g.collections == nil {
		return fmt.Errorf("semantic: %w: Connect not called", domain.ErrStoreUnreachable)
	}
	return nil
}

// Collections returns the names of all collections in the store.
func (g *Gateway) Collections(ctx context.Context) ([]string, error) {
	if err := g.session(); err != nil {
		return nil, err
	}
	list, err := g.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("semantic: list collections: %w: %v", domain.ErrStoreUnreachable, err)
	}
	names := make([]string, 0, len(list.GetCollections()))
	for _, c := range list.GetCollections() {
		names = append(names, c.GetName())
	}
	return names, nil
}

// EnsureCollection leaves an existing collection untouched unless
// forceRebuild is set, in which case (or when the collection is absent) it
// is deleted if present and recreated empty with the given dimension and
// metric. Returns true when the collection was (re)created; the caller must
// then repopulate it in full.
func (g *Gateway) EnsureCollection(ctx context.Context, dim int, metric string, forceRebuild bool) (bool, error) {
	if err := g.session(); err != nil {
		return false, err
	}
	names, err := g.Collections(ctx)
	if err != nil {
		return false, err
	}
	exists := false
	for _, n := range names {
		if n == g.collection {
			exists = true
			break
		}
	}

	if exists && !forceRebuild {
		g.logger.Info("reusing collection", "collection", g.collection)
		return false, nil
	}
	if exists {
		if _, err := g.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: g.collection}); err != nil {
			return false, fmt.Errorf("semantic: delete collection %s: %w", g.collection, err)
		}
	}

	dist, err := DistanceFromName(metric)
	if err != nil {
		return false, err
	}
	_, err = g.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: g.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
					Distance: dist,
				},
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("semantic: create collection %s: %w", g.collection, err)
	}
	g.logger.Info("collection created", "collection", g.collection, "dim", dim, "metric", metric)
	return true, nil
}

// Ingest upserts the aligned (vector, meta) pairs in contiguous chunks of
// at most batchSize points. Chunks are submitted strictly in order, each
// completing before the next begins; a failure leaves the prefix before the
// failing chunk ingested and is reported as an IngestError carrying the
// chunk index.
func (g *Gateway) Ingest(ctx context.Context, vectors [][]float32, meta []domain.ItemMeta, batchSize int) error {
	if err := g.session(); err != nil {
		return err
	}
	if len(vectors) != len(meta) {
		return fmt.Errorf("semantic: %d vectors vs %d metadata entries", len(vectors), len(meta))
	}
	if len(vectors) == 0 {
		return nil
	}
	if batchSize <= 0 {
		return fmt.Errorf("semantic: batch size %d", batchSize)
	}

	type pair struct {
		vec []float32
		m   domain.ItemMeta
	}
	pairs := make([]pair, len(vectors))
	for i := range vectors {
		pairs[i] = pair{vectors[i], meta[i]}
	}

	wait := true
	for ci, chunk := range fn.Chunk(pairs, batchSize) {
		points := make([]*pb.PointStruct, len(chunk))
		for i, p := range chunk {
			points[i] = &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Num{Num: uint64(p.m.MALID)},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: p.vec},
					},
				},
				Payload: metaPayload(p.m),
			}
		}
		if _, err := g.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: g.collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return &domain.IngestError{Chunk: ci, Cause: err}
		}
		g.logger.Debug("chunk upserted", "chunk", ci, "points", len(points))
	}
	g.logger.Info("ingestion complete", "collection", g.collection, "points", len(vectors))
	return nil
}

// FetchVector retrieves the stored point for id. An id absent from the
// collection reports domain.ErrNotFound; that is the expected way an
// unknown reference item surfaces, not a store fault.
func (g *Gateway) FetchVector(ctx context.Context, id int64) (Point, error) {
	if err := g.session(); err != nil {
		return Point{}, err
	}
	resp, err := g.points.Get(ctx, &pb.GetPoints{
		CollectionName: g.collection,
		Ids: []*pb.PointId{
			{PointIdOptions: &pb.PointId_Num{Num: uint64(id)}},
		},
		WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors: &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return Point{}, fmt.Errorf("semantic: retrieve %d: %w: %v", id, domain.ErrStoreUnreachable, err)
	}
	result := resp.GetResult()
	if len(result) == 0 {
		return Point{}, fmt.Errorf("semantic: point %d: %w", id, domain.ErrNotFound)
	}
	r := result[0]
	return Point{
		MALID:  id,
		Vector: r.GetVectors().GetVector().GetData(),
		Name:   r.GetPayload()["name"].GetStringValue(),
	}, nil
}

// QueryNearest returns up to limit points ordered by descending similarity
// score under the collection's metric. The reference point itself is
// normally the top hit; callers wanting it excluded filter by id.
func (g *Gateway) QueryNearest(ctx context.Context, vector []float32, limit int) ([]Neighbor, error) {
	if err := g.session(); err != nil {
		return nil, err
	}
	resp, err := g.points.Search(ctx, &pb.SearchPoints{
		CollectionName: g.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w: %v", domain.ErrStoreUnreachable, err)
	}

	neighbors := make([]Neighbor, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		n := Neighbor{
			MALID: int64(r.GetId().GetNum()),
			Score: r.GetScore(),
		}
		if p := r.GetPayload(); p != nil {
			if v, ok := p["mal_id"]; ok {
				n.MALID = v.GetIntegerValue()
			}
			n.Name = p["name"].GetStringValue()
		}
		neighbors[i] = n
	}
	return neighbors, nil
}

func metaPayload(m domain.ItemMeta) map[string]*pb.Value {
	return map[string]*pb.Value{
		"mal_id": {Kind: &pb.Value_IntegerValue{IntegerValue: m.MALID}},
		"name":   {Kind: &pb.Value_StringValue{StringValue: m.Name}},
	}
}

// DistanceFromName maps a configured metric name to the Qdrant distance.
func DistanceFromName(name string) (pb.Distance, error) {
	switch strings.ToLower(name) {
	case "cosine":
		return pb.Distance_Cosine, nil
	case "euclid", "euclidean":
		return pb.Distance_Euclid, nil
	case "dot":
		return pb.Distance_Dot, nil
	case "manhattan":
		return pb.Distance_Manhattan, nil
	default:
		return pb.Distance_UnknownDistance, fmt.Errorf("semantic: unknown distance metric %q", name)
	}
}
