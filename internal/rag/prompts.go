package rag

import (
	"fmt"
	"strings"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/queryModel"
	"github.com/akolanti/RecallAPI/internal/rag/llm"
)

const systemPrompt = `You are RecallAI, a study assistant that helps students learn from lecture slides.

DO:
- Answer questions based ONLY on the provided lecture slide content
- Generate quiz questions that test specific concepts from the slides
- Provide clear explanations when students forfeit quiz questions
- Cite which lecture/slide section information comes from
- Admit when information is not in the provided slides

DON'T:
- Make up information not present in the lecture slides
- Help with academic dishonesty or cheating
- Answer questions unrelated to the study material
- Provide quiz answers without the student attempting first
- Include personal opinions or external information not from slides

When summarizing: Create clear topic headings and concise bullet points.
When quizzing: Ask specific, answerable questions from the slide content.`

const summaryInstruction = "Answer the query or summarize the requested topic using the lecture content. " +
	"Reference sources by the [source: ...] tags."

const quizInstruction = "Generate ONE quiz question based on the provided lecture content.\n\n" +
	"The question should test understanding of the concepts in the " +
	"provided lecture content. Make it specific and answerable from the slides."

const multipleChoiceInstruction = "Generate ONE multiple choice question based on the provided lecture content.\n\n" +
	"The question should test understanding of the concepts in the " +
	"provided lecture content. Make it specific and answerable from the slides.\n\n" +
	"IMPORTANT: Format your response as valid JSON with the following structure:\n" +
	"{\n" +
	"  \"question\": \"Your question here\",\n" +
	"  \"options\": [\"Option A\", \"Option B\", \"Option C\", \"Option D\"],\n" +
	"  \"correct_answer\": \"A\",\n" +
	"  \"explanation\": \"Explanation of why this is the correct answer\"\n" +
	"}\n" +
	"Make sure only one option is correct and the explanation references the lecture content."

const shortAnswerInstruction = "Generate ONE fill-in-the-blank question based on the provided lecture content.\n\n" +
	"The question should test understanding of the concepts in the " +
	"provided lecture content. Make it specific and answerable from the slides.\n\n" +
	"IMPORTANT: Format your response as valid JSON with the following structure:\n" +
	"{\n" +
	"  \"question\": \"Your question with a blank marked as ____\",\n" +
	"  \"answer\": \"The correct answer for the blank\",\n" +
	"  \"explanation\": \"Explanation of why this is the correct answer\"\n" +
	"}\n" +
	"Make sure the answer is directly supported by the lecture content."

const noContextInstruction = "No lecture content matched this query. Say so plainly, do not invent material, " +
	"and suggest uploading the relevant slides or rephrasing the question."

const validationTemplate = "Question: %s\n\n" +
	"Correct answer: %s\n\n" +
	"Student's answer: %s\n\n" +
	"Determine if the student's answer is correct or equivalent to the correct answer. " +
	"Consider synonyms, alternative phrasing, partial credit, and case-insensitive matching. " +
	"Case should not matter - 'Answer', 'answer', and 'ANSWER' are all equivalent. " +
	"IMPORTANT: Respond ONLY with valid JSON in this exact format: " +
	"{\"correct\": true or false, \"feedback\": \"brief explanation\"}"

const forfeitTemplate = "The student asked: %s\n\n" +
	"Provide the answer with a clear explanation based on the lecture content."

func modeInstruction(mode queryModel.Mode, quizType queryModel.QuizType) string {
	if mode != queryModel.ModeQuiz {
		return summaryInstruction
	}
	switch quizType {
	case queryModel.QuizTypeMultipleChoice:
		return multipleChoiceInstruction
	case queryModel.QuizTypeShortAnswer:
		return shortAnswerInstruction
	default:
		return quizInstruction
	}
}

// lectureContent renders retrieved chunks as "[source: file#chunk]" blocks.
func lectureContent(chunks []commonModels.DocChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[source: %s]\n%s", c.Citation(), c.Content)
	}
	return b.String()
}

// buildPrompt lays out the user turn as lecture content, then the task, then the query.
func buildPrompt(instruction, query string, chunks []commonModels.DocChunk) llm.Prompt {
	var b strings.Builder
	if len(chunks) > 0 {
		b.WriteString("Lecture Content:\n")
		b.WriteString(lectureContent(chunks))
		b.WriteString("\n\n")
	} else {
		b.WriteString(noContextInstruction)
		b.WriteString("\n\n")
	}
	b.WriteString("Task: ")
	b.WriteString(instruction)
	if query != "" {
		b.WriteString("\n\nUser Query: ")
		b.WriteString(query)
	}
	return llm.Prompt{System: systemPrompt, User: b.String()}
}

func chunksOf(result commonModels.RetrievalResult) []commonModels.DocChunk {
	chunks := make([]commonModels.DocChunk, 0, len(result))
	for _, sc := range result {
		chunks = append(chunks, sc.Chunk)
	}
	return chunks
}
