package doctrine

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed docs/*.md
var embeddedDocs embed.FS

// Document 是一份带版本标识的静态战法文档。进程启动时加载一次，之后只读。
type Document struct {
	ID           string // 引用键，XINFA:<file>
	File         string
	Title        string
	Role         string // "system"（每次必带）| "regime"（按 regime 选择）
	Regime       string // regime 文档对应的书：TREND / RANGE / REVERSAL
	Text         string
	ApproxTokens int
}

type frontMatter struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Role   string `yaml:"role"`
	Regime string `yaml:"regime"`
}

// Store 持有全部战法文档。加载后不再变更，可安全并发读。
type Store struct {
	docs  map[string]Document
	order []string
}

// Load 从目录加载战法文档；dir 为空时使用内嵌文档。
func Load(dir string) (*Store, error) {
	if dir == "" {
		sub, err := fs.Sub(embeddedDocs, "docs")
		if err != nil {
			return nil, err
		}
		return loadFS(sub)
	}
	return loadFS(os.DirFS(dir))
}

func loadFS(fsys fs.FS) (*Store, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("读取战法目录失败: %w", err)
	}
	s := &Store{docs: make(map[string]Document)}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("读取 %s 失败: %w", name, err)
		}
		doc, err := parseDocument(name, string(raw))
		if err != nil {
			return nil, err
		}
		s.docs[doc.ID] = doc
		s.order = append(s.order, doc.ID)
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("战法目录为空")
	}
	return s, nil
}

func parseDocument(file, raw string) (Document, error) {
	var fm frontMatter
	body := raw
	if strings.HasPrefix(raw, "---") {
		parts := strings.SplitN(raw, "---", 3)
		if len(parts) == 3 {
			if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
				return Document{}, fmt.Errorf("%s front matter 解析失败: %w", file, err)
			}
			body = strings.TrimSpace(parts[2])
		}
	}
	if fm.ID == "" {
		fm.ID = file
	}
	return Document{
		ID:           "XINFA:" + fm.ID,
		File:         fm.ID,
		Title:        fm.Title,
		Role:         fm.Role,
		Regime:       strings.ToUpper(fm.Regime),
		Text:         body,
		ApproxTokens: ApproxTokens(body),
	}, nil
}

// ApproxTokens 粗估 token 数（约 4 字符/token）。
func ApproxTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// Get 按引用键取文档。
func (s *Store) Get(id string) (Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// AlwaysSet 返回每次决策都要带上的 system 文档（世界观/心理/特征词汇表）。
func (s *Store) AlwaysSet() []Document {
	var out []Document
	for _, id := range s.order {
		if d := s.docs[id]; d.Role == "system" {
			out = append(out, d)
		}
	}
	return out
}

// ForBooks 返回给定书目对应的 regime 文档，保持加载序、去重。
func (s *Store) ForBooks(books []string) []Document {
	want := make(map[string]bool, len(books))
	for _, b := range books {
		want[strings.ToUpper(b)] = true
	}
	var out []Document
	for _, id := range s.order {
		d := s.docs[id]
		if d.Role == "regime" && want[d.Regime] {
			out = append(out, d)
		}
	}
	return out
}

// All 返回全部文档（加载序）。
func (s *Store) All() []Document {
	out := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}
