package llm

import (
	"fmt"
	"strings"

	"github.com/studymate/backend/internal/models"
)

// Prompt builders for each generation mode. Structured modes declare the
// exact JSON shape inline so JSON-mode completions decode into the models.

const studentSystemPrompt = "You are an expert teacher preparing material for a school student. " +
	"Be accurate, age-appropriate and encouraging."

// TutorSystemPrompt seeds a tutoring chat session with the student's context.
func TutorSystemPrompt(req models.StudyRequest) string {
	var b strings.Builder
	b.WriteString("You are a patient personal tutor")
	if req.Subject != "" {
		fmt.Fprintf(&b, " for %s", req.Subject)
	}
	if req.Grade != "" {
		fmt.Fprintf(&b, " (grade %s)", req.Grade)
	}
	b.WriteString(". Answer questions step by step and check understanding before moving on.")
	if req.Chapter != "" {
		fmt.Fprintf(&b, " The current chapter is %q.", req.Chapter)
	}
	return b.String()
}

// SummaryRequest builds the prompt for a chapter summary.
func SummaryRequest(req models.StudyRequest) Request {
	return Request{
		System: studentSystemPrompt,
		Prompt: fmt.Sprintf(
			"Write a clear, structured summary of the chapter %q for a grade %s student studying %s. "+
				"Use headings and bullet points for key concepts.%s",
			req.Chapter, req.Grade, req.Subject, extraNote(req)),
	}
}

// EssayRequest builds the prompt for an essay.
func EssayRequest(req models.StudyRequest) Request {
	return Request{
		System: studentSystemPrompt,
		Prompt: fmt.Sprintf(
			"Write a well-organised essay on %q suitable for a grade %s %s class. "+
				"Include an introduction, body paragraphs and a conclusion.%s",
			req.Chapter, req.Grade, req.Subject, extraNote(req)),
	}
}

// NotesRequest builds the prompt for a note-taking template.
func NotesRequest(req models.StudyRequest) Request {
	return Request{
		System: studentSystemPrompt,
		Prompt: fmt.Sprintf(
			"Create a note-taking template for the chapter %q (%s, grade %s): "+
				"section headings, guiding questions and space for key terms.%s",
			req.Chapter, req.Subject, req.Grade, extraNote(req)),
	}
}

// EssayImagePrompt describes the illustration for an essay.
func EssayImagePrompt(req models.StudyRequest) string {
	return fmt.Sprintf("A clean educational illustration for a school essay about %q (%s). "+
		"Flat colours, no text.", req.Chapter, req.Subject)
}

// quizEnvelope matches the JSON-mode wrapper object for quiz generation.
type quizEnvelope struct {
	Questions []models.QuizQuestion `json:"questions"`
}

// QuizRequest builds the structured prompt for quiz generation.
func QuizRequest(req models.StudyRequest, count int, difficulty models.QuizDifficulty) Request {
	return Request{
		System: studentSystemPrompt,
		Prompt: fmt.Sprintf(
			"Generate a %s-difficulty multiple-choice quiz with exactly %d questions about the chapter %q "+
				"(%s, grade %s). Respond with JSON only, shaped as "+
				`{"questions":[{"question":string,"options":[4 strings],"correctIndex":0-3,"explanation":string}]}.%s`,
			difficulty, count, req.Chapter, req.Subject, req.Grade, extraNote(req)),
	}
}

// scheduleEnvelope matches the JSON-mode wrapper object for timetables.
type scheduleEnvelope struct {
	Timetable []models.TimetableEntry `json:"timetable"`
}

// ScheduleRequest builds the structured prompt for a study schedule.
func ScheduleRequest(req models.StudyRequest) Request {
	return Request{
		System: studentSystemPrompt,
		Prompt: fmt.Sprintf(
			"Create a one-week study timetable for a grade %s student preparing %s, chapter %q. "+
				"Respond with JSON only, shaped as "+
				`{"timetable":[{"day":string,"time":string,"subject":string,"activity":string}]}.%s`,
			req.Grade, req.Subject, req.Chapter, extraNote(req)),
	}
}

func extraNote(req models.StudyRequest) string {
	if req.Extra == "" {
		return ""
	}
	return " Additional instructions: " + req.Extra
}
