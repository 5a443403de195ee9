// Package hotspot provides an embedded Go client for the hotspot question
// catalog backed by Redis Stack.
//
// The client talks to the database directly, without going through the HTTP
// API, and exposes the same per-group operations:
//
//	client, _ := hotspot.New(ctx,
//	    hotspot.WithRedis("localhost:6379", ""),
//	    hotspot.WithEmbedding(hotspot.EmbeddingConfig{
//	        BaseURL: "http://localhost:8100/v1",
//	        Model:   "BAAI/bge-m3",
//	    }),
//	)
//	defer client.Close()
//
//	acme := client.Group("acme")
//	id, _ := acme.AddQuestion(ctx, hotspot.Question{
//	    Question:      "How do I reset my password?",
//	    StandardReply: "Use the self-service portal.",
//	    Category:      "account",
//	})
//	res, _ := acme.Query(ctx, "forgot my password", hotspot.QueryOptions{Limit: 3})
//	_ = res.Matches[0].SimilarityScore
//	_ = id
//
// Every method unwraps the service response envelope: non-2xx envelopes come
// back as errors checkable with errors.Is against ErrNotFound, ErrValidation,
// and ErrUnavailable.
package hotspot
