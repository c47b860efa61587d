package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPIndex 通过 HTTP API 对接外部向量索引服务。
// 协议：POST {endpoint}/search 与 POST {endpoint}/neighbors，请求响应均为 JSON。
type HTTPIndex struct {
	endpoint string
	client   *http.Client
}

func NewHTTPIndex(endpoint string) *HTTPIndex {
	return &HTTPIndex{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Search 实现 VectorIndex。
func (h *HTTPIndex) Search(ctx context.Context, query string, topK int, f Filter) ([]ScoredChunk, error) {
	payload := map[string]any{
		"query": query,
		"top_k": topK,
	}
	if f.Book != "" {
		payload["book"] = f.Book
	}
	if f.Section != "" {
		payload["section"] = f.Section
	}
	body, err := h.post(ctx, "/search", payload)
	if err != nil {
		return nil, err
	}

	var out []ScoredChunk
	gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
		out = append(out, ScoredChunk{
			Chunk: chunkFromJSON(item),
			Score: item.Get("score").Float(),
		})
		return true
	})
	return out, nil
}

// Neighbors 实现 VectorIndex。
func (h *HTTPIndex) Neighbors(ctx context.Context, book string, seq, n int) ([]Chunk, error) {
	body, err := h.post(ctx, "/neighbors", map[string]any{
		"book": book,
		"seq":  seq,
		"n":    n,
	})
	if err != nil {
		return nil, err
	}

	var out []Chunk
	gjson.GetBytes(body, "chunks").ForEach(func(_, item gjson.Result) bool {
		out = append(out, chunkFromJSON(item))
		return true
	})
	return out, nil
}

func chunkFromJSON(item gjson.Result) Chunk {
	return Chunk{
		Book:      item.Get("book").String(),
		ChunkID:   item.Get("chunk_id").String(),
		Seq:       int(item.Get("seq").Int()),
		PageStart: int(item.Get("page_start").Int()),
		PageEnd:   int(item.Get("page_end").Int()),
		Section:   item.Get("section").String(),
		Text:      item.Get("text").String(),
		NTokens:   int(item.Get("n_tokens").Int()),
	}
}

func (h *HTTPIndex) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("向量索引返回 %d: %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}
