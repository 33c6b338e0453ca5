package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"spotpilot/internal/logger"
	"spotpilot/internal/pkg/jsonutil"
	"spotpilot/internal/review"
	"spotpilot/internal/store"
)

// Journal 交接记录的持久化能力，nil 时只落文件
type Journal interface {
	SavePrompt(ctx context.Context, rec store.PromptRecord) error
	GetPrompt(ctx context.Context, id string) (store.PromptRecord, bool, error)
	SaveResponse(ctx context.Context, rec store.ResponseRecord) (int64, error)
	ListResponses(ctx context.Context, promptID string) ([]store.ResponseRecord, error)
}

// Response 第二阶段解析结果；非模板回复只保留原文
type Response struct {
	PromptID        string                  `json:"prompt_id"`
	Raw             string                  `json:"raw"`
	Score           *int                    `json:"score,omitempty"`
	Recommendations []review.Recommendation `json:"recommendations,omitempty"`
	Structured      bool                    `json:"structured"`
	ParseError      string                  `json:"parse_error,omitempty"`
}

type Handoff struct {
	builder *Builder
	journal Journal
	dir     string
}

func NewHandoff(builder *Builder, journal Journal, dir string) *Handoff {
	if dir == "" {
		dir = "prompts"
	}
	return &Handoff{builder: builder, journal: journal, dir: dir}
}

func (h *Handoff) promptPath(id string) string { return filepath.Join(h.dir, id+".md") }

// checkID 提示词 ID 会拼进文件路径，只接受 uuid
func checkID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("无效的提示词 ID %q", id)
	}
	return id, nil
}

// Issue 生成提示词、写入 markdown 并记录
func (h *Handoff) Issue(ctx context.Context, in Input) (Artifact, error) {
	art, err := h.builder.Build(in)
	if err != nil {
		return Artifact{}, err
	}
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("创建提示词目录失败: %w", err)
	}
	art.Path = h.promptPath(art.ID)
	if err := os.WriteFile(art.Path, []byte(art.Markdown()), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("写入提示词失败: %w", err)
	}
	if h.journal != nil {
		rec := store.PromptRecord{ID: art.ID, Kind: string(art.Kind), System: art.System, User: art.User, FilePath: art.Path, CreatedAt: art.CreatedAt}
		if err := h.journal.SavePrompt(ctx, rec); err != nil {
			return art, fmt.Errorf("记录提示词失败: %w", err)
		}
	}
	logger.Infof("提示词 %s (%s) 已写入 %s", art.ID, art.Kind, art.Path)
	return art, nil
}

func (h *Handoff) known(ctx context.Context, id string) (bool, error) {
	if h.journal != nil {
		_, ok, err := h.journal.GetPrompt(ctx, id)
		return ok, err
	}
	_, err := os.Stat(h.promptPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Accept 接收人工粘贴的模型回复；结构化提取失败不算错误
func (h *Handoff) Accept(ctx context.Context, id, text string) (Response, error) {
	id, err := checkID(id)
	if err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Response{}, fmt.Errorf("回复内容为空")
	}
	ok, err := h.known(ctx, id)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return Response{}, fmt.Errorf("未知提示词 %s", id)
	}
	resp := Extract(text)
	resp.PromptID = id

	if err := os.WriteFile(filepath.Join(h.dir, id+".response.md"), []byte(text), 0o644); err != nil {
		return resp, fmt.Errorf("写入回复失败: %w", err)
	}
	if h.journal != nil {
		rec := store.ResponseRecord{PromptID: id, Raw: text, Score: resp.Score}
		if len(resp.Recommendations) > 0 {
			buf, err := json.Marshal(resp.Recommendations)
			if err != nil {
				return resp, fmt.Errorf("序列化建议失败: %w", err)
			}
			rec.Recommendations = string(buf)
		}
		if _, err := h.journal.SaveResponse(ctx, rec); err != nil {
			return resp, fmt.Errorf("记录回复失败: %w", err)
		}
	}
	if resp.ParseError != "" {
		logger.Warnf("回复 %s 未能结构化: %s", id, resp.ParseError)
	}
	return resp, nil
}

// Responses 列出某个提示词已接收的回复，需要开启日志
func (h *Handoff) Responses(ctx context.Context, id string) ([]store.ResponseRecord, error) {
	id, err := checkID(id)
	if err != nil {
		return nil, err
	}
	if h.journal == nil {
		return nil, fmt.Errorf("未开启 journal，回复只保存在 %s", h.dir)
	}
	return h.journal.ListResponses(ctx, id)
}

var scoreRe = regexp.MustCompile(`(?im)^\s*\**\s*SCORE\s*[:：]\s*(\d{1,3})\s*/\s*100`)

// Extract 只识别固定模板：首个 JSON 数组 + SCORE 行
func Extract(text string) Response {
	resp := Response{Raw: text}
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v <= 100 {
			resp.Score = &v
		}
	}
	arr, _, ok := jsonutil.ExtractArray(text)
	if !ok {
		resp.ParseError = "未找到 JSON 数组"
		return resp
	}
	recs, err := review.Parse(arr)
	if err != nil {
		resp.ParseError = err.Error()
		return resp
	}
	resp.Recommendations = recs
	resp.Structured = true
	return resp
}
