package market

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"
)

// BinanceSource 基于 Binance USDT 合约 klines 接口回补窗口。
type BinanceSource struct {
	client *futures.Client
}

// NewBinanceSource 创建只读行情客户端；baseURL 为空时用官方地址。
func NewBinanceSource(baseURL string) *BinanceSource {
	cli := futures.NewClient("", "")
	if baseURL != "" {
		cli.BaseURL = baseURL
	}
	return &BinanceSource{client: cli}
}

func (b *BinanceSource) Name() string { return "binance" }

func (b *BinanceSource) Fetch(ctx context.Context, req FetchRequest) (Window, error) {
	if req.Symbol == "" || req.Interval == "" {
		return nil, fmt.Errorf("symbol/interval 不能为空")
	}
	limit := req.Limit
	if limit <= 0 || limit > 1500 {
		limit = 1000
	}
	klines, err := b.client.NewKlinesService().
		Symbol(req.Symbol).
		Interval(req.Interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines 拉取失败: %w", err)
	}
	out := make(Window, 0, len(klines))
	for _, k := range klines {
		out = append(out, Candle{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      parseF(k.Open),
			High:      parseF(k.High),
			Low:       parseF(k.Low),
			Close:     parseF(k.Close),
			Volume:    parseF(k.Volume),
		})
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseF(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
