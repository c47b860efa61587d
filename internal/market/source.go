package market

import "context"

// FetchRequest 描述一次 bar 窗口拉取。
type FetchRequest struct {
	Symbol   string
	Interval string
	Limit    int
}

// CandleSource 统一 CSV 回放 / 交易所回补两种 bar 来源。
type CandleSource interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) (Window, error)
}

// CSVSource 从本地 CSV 读取窗口，watch 模式下每次评估重新读文件。
type CSVSource struct {
	Path string
}

func (s *CSVSource) Name() string { return "csv" }

func (s *CSVSource) Fetch(_ context.Context, req FetchRequest) (Window, error) {
	w, err := LoadCandleCSV(s.Path)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(w) > req.Limit {
		w = w[len(w)-req.Limit:]
	}
	return w, nil
}
