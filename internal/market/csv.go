package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCandleCSV 读取 OHLCV CSV。首行为列头，必须包含
// timestamp,open,high,low,close,volume（顺序不限，大小写不敏感）。
// timestamp 接受毫秒整数或 RFC3339。
func LoadCandleCSV(path string) (Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开 CSV 失败: %w", err)
	}
	defer f.Close()
	return ParseCandleCSV(f)
}

// ParseCandleCSV 从 reader 解析 K 线。
func ParseCandleCSV(r io.Reader) (Window, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 列头失败: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("CSV 缺少列: %s", col)
		}
	}

	var out Window
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("第 %d 行解析失败: %w", line, err)
		}
		ts, err := parseTimestamp(rec[idx["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("第 %d 行时间戳非法: %w", line, err)
		}
		c := Candle{OpenTime: ts}
		for col, dst := range map[string]*float64{
			"open": &c.Open, "high": &c.High, "low": &c.Low,
			"close": &c.Close, "volume": &c.Volume,
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行 %s 非法: %w", line, col, err)
			}
			*dst = v
		}
		out = append(out, c)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	// close_time 未提供时按相邻 bar 推断
	for i := range out {
		if i+1 < len(out) {
			out[i].CloseTime = out[i+1].OpenTime - 1
		} else if len(out) >= 2 {
			out[i].CloseTime = out[i].OpenTime + (out[i].OpenTime - out[i-1].OpenTime) - 1
		}
	}
	return out, nil
}

func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		// 秒级时间戳自动升毫秒
		if ms < 1e12 {
			ms *= 1000
		}
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
