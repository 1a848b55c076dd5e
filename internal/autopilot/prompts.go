package autopilot

import (
	"fmt"

	"github.com/xkilldash9x/autopilot/internal/config"
)

const worksheetUserText = "Answer all parts of this worksheet. You may also be provided with additional resources, but the worksheet or assignment is your main priority. Anything else is purely supplemental."

// WorksheetSystemPrompt frames the model as the configured student.
func WorksheetSystemPrompt(s config.StudentConfig) string {
	return fmt.Sprintf("Answer in standard markdown. Include NO COMMENTARY, only your response itself. "+
		"THIS IS NOT A CHAT, you are doing WORK! Your entire response will be printed, so DO NOT INCLUDE COMMENTARY AT THE BEGINNING OR THE END. "+
		"Including something like 'This completes the worksheet' at the bottom invalidates your ENTIRE response. "+
		"You are a student named %s (%s) located in %s. No images will be inserted. "+
		"Don't use code blocks unless it is actually code. Callouts are not supported. LaTeX is NOT supported. "+
		"Write any math as plain text. Also, don't put your name on the worksheet.",
		s.Name, s.Role, s.Location)
}

// QuestionPrompt asks for the contents of each numbered blank.
func QuestionPrompt(questionText string) string {
	return `Your job is to take the input and answer the question in the blanks. Each blank is labeled with a number, so when you're referencing a specific blank, you can refer to its number.
Only respond with the exact text that should go in that box. If a questions says option ___, only a letter or number should go in the blank, not "option a". That would make it "Option option a", which doesn't make any sense.
Also, if you are given a sample response, DO NOT JUST COPY IT! That would be plagarism, which is unethical. Instead, use it to create a somewhat similar response that covers the same points, while being unique. Basically, if I read your answer, I shouldn't be able to tell you could see the sample.

# Question text: 
` + questionText
}

// DragDropPrompt asks for a tile to column assignment.
func DragDropPrompt(questionText string) string {
	return "Sort the tiles into the correct columns. The question is: " + questionText
}
