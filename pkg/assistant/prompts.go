package assistant

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/archtrace/pkg/model"
)

// DefaultSystemPrompt is sent as the system instruction with every request.
const DefaultSystemPrompt = `你是一位智慧機場架構專家，專門協助說明系統整合、數據流與架構設計。

請用繁體中文回答，遵循以下指南：
1. 提供清晰、專業但易懂的解釋
2. 使用具體範例說明抽象概念
3. 適時使用項目列表或編號列表
4. 重點資訊使用 **粗體** 強調
5. 保持回答簡潔（100-150字）但資訊豐富

架構概念：
- **數據中台 (Data Middle Platform)**: AODB、BAS、FIDS 等核心系統的數據整合層
- **營運層 (OT Layer)**: 實體設備如行李輸送、登機門、安檢等
- **智慧應用層**: AI 驅動的預測與優化系統

回答時保持友善、專業，並適度運用 emoji 增加可讀性。`

// milestonePrimer describes the four maturity stages.
const milestonePrimer = `本架構分為四個演進階段：
- Airport 1.0 (人工協作)：流程高度依賴人工介入，IT 僅作為輔助工具。
- Airport 2.0 (效率優化)：自助服務與流程自動化 (如 CUSS, FIDS)。
- Airport 3.0 (數位整合)：數據流動與協作 (如 AODB, App)。
- Airport 4.0 (智慧預測)：AI 驅動、物聯網與全面感知 (如 ACDMP, Digital Twin)。`

// Greeting is the first message of every conversation.
const Greeting = "您好！我是機場的 AI 系統架構師。\n\n您可以先**選取一個系統**，再開啟對話，我將為您解釋該系統的功能與數據流向。"

// Suggestion is a canned question offered as a chip in the chat panel.
type Suggestion struct {
	Label string
	Query string
}

// Presets are always offered.
var Presets = []Suggestion{
	{Label: "QMS 效益", Query: "說明「QMS (排隊管理系統)」的具體效益。"},
	{Label: "AODB vs BAS", Query: "比較「AODB」和「BAS」在數據中台中的角色。"},
	{Label: "ACDMP 支援 RMS", Query: "說明「ACDMP」如何支援「RMS (Auto-Alloc)」進行資源分配。"},
}

// NodeSuggestion is the question about a specific system.
func NodeSuggestion(n model.Node) Suggestion {
	return Suggestion{
		Label: "詢問 " + n.Name,
		Query: fmt.Sprintf("請說明「%s」系統在此架構中的角色。\n備註：%s", n.Name, n.Description),
	}
}

// Suggestions lists the chips for the current selection: the question
// about the selected node first (when there is one), then the presets.
func Suggestions(selected *model.Node) []Suggestion {
	out := make([]Suggestion, 0, len(Presets)+1)
	if selected != nil {
		out = append(out, NodeSuggestion(*selected))
	}
	return append(out, Presets...)
}

// ArchitecturePrompt extends the default system instruction with the
// milestone stages and a compact listing of arch, so answers can refer to
// the systems actually on screen.
func ArchitecturePrompt(arch model.Architecture) string {
	var b strings.Builder
	b.WriteString(DefaultSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(milestonePrimer)
	if len(arch.Layers) == 0 {
		return b.String()
	}
	b.WriteString("\n\n系統清單：\n")
	for _, layer := range arch.Layers {
		fmt.Fprintf(&b, "[%s] %s\n", layer.ID, layer.Title)
		for _, group := range layer.Groups {
			for _, n := range group.Systems {
				fmt.Fprintf(&b, "- %s (%s, %s, %s)", n.Name, n.ID, n.Type, n.Milestone.Label())
				if len(n.Targets) > 0 {
					fmt.Fprintf(&b, " -> %s", strings.Join(n.Targets, ", "))
				}
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
