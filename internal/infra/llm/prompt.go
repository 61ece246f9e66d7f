package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"quiz-journey/internal/domain"
)

var questionSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "STRING",
				"description": "نص السؤال باللغة العربية",
			},
			"options": map[string]any{
				"type":        "ARRAY",
				"items":       map[string]any{"type": "STRING"},
				"description": "قائمة من أربعة خيارات محتملة باللغة العربية. يجب أن تكون واحدة منها صحيحة.",
			},
			"correctAnswer": map[string]any{
				"type":        "STRING",
				"description": "نص الإجابة الصحيحة من قائمة الخيارات.",
			},
		},
		"required": []string{"question", "options", "correctAnswer"},
	},
}

// QuestionConfig is the generation config asking for a JSON question array.
func QuestionConfig() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"responseMimeType": "application/json",
		"responseSchema":   questionSchema,
	})
	return data
}

// BuildPrompt renders the Arabic instruction for criteria. Themed criteria
// stay on one topic; unthemed ones span the Islamic sciences.
func BuildPrompt(c domain.Criteria) string {
	var b strings.Builder
	b.WriteString("أنت خبير في العلوم الإسلامية ومصمم ألعاب تعليمية.\n")
	if c.Themed() {
		fmt.Fprintf(&b, "مهمتك هي إنشاء %d أسئلة اختيار من متعدد باللغة العربية.\n", c.Count)
		fmt.Fprintf(&b, "الموضوع المحدد هو: '%s'.\n", c.Title)
		if c.Description != "" {
			fmt.Fprintf(&b, "وصف الموضوع هو: '%s'.\n", c.Description)
		}
	} else {
		fmt.Fprintf(&b, "مهمتك هي إنشاء %d أسئلة اختيار من متعدد عشوائية ومتنوعة باللغة العربية.\n", c.Count)
	}
	fmt.Fprintf(&b, "مستوى الصعوبة المطلوب هو: '%s'.\n\n", c.Difficulty)

	b.WriteString("إرشادات هامة:\n")
	if c.Themed() {
		b.WriteString("1. يجب أن تكون جميع الأسئلة مرتبطة بشكل مباشر بالموضوع المحدد ووصفه.\n")
	} else {
		b.WriteString("1. يجب أن تغطي الأسئلة مجموعة واسعة من المواضيع الإسلامية مثل: (السيرة النبوية، قصص الأنبياء، الصحابة، الفقه، العقيدة، علوم القرآن، التاريخ الإسلامي).\n")
	}
	b.WriteString("2. يجب أن يكون لكل سؤال أربعة خيارات، وإجابة واحدة صحيحة فقط.\n")
	b.WriteString("3. تأكد من أن الأسئلة متنوعة وواضحة ومناسبة لمستوى الصعوبة المحدد.\n")
	b.WriteString("4. استخدم معلومات من مصادر إسلامية موثوقة مثل القرآن الكريم، والسنة النبوية الصحيحة، وكتب السيرة المعتبرة.\n\n")
	b.WriteString("الرجاء تنسيق الإخراج كـ JSON فقط، بدون أي نص إضافي قبله أو بعده.\n")
	b.WriteString("يجب أن يتوافق الإخراج تمامًا مع مخطط JSON المحدد.")
	return b.String()
}
