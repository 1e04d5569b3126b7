package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/quizforge/quizforge-backend/internal/app"
	"github.com/quizforge/quizforge-backend/internal/services"
	"github.com/quizforge/quizforge-backend/internal/types"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  quizforge ingest <course-id> <material-file>   process course material
  quizforge reembed <course-id>                  rebuild the vector index
  quizforge generate <course-id>                 build the static question pool
  quizforge ask <course-id>                      generate one live question
  quizforge clear <course-id>                    remove all derived course data`)
	os.Exit(2)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on environment")
	}

	if len(os.Args) < 3 {
		usage()
	}
	command := os.Args[1]
	courseID, err := uuid.Parse(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid course id %q: %v\n", os.Args[2], err)
		os.Exit(2)
	}

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	switch command {
	case "ingest":
		if len(os.Args) < 4 {
			usage()
		}
		ensureCourse(ctx, a, courseID)
		if err := a.Services.Ingestion.ProcessMaterial(ctx, courseID, os.Args[3]); err != nil {
			a.Log.Fatal("ingestion failed", "course_id", courseID, "error", err)
		}
	case "reembed":
		if err := a.Services.Embedder.ReembedCourse(ctx, courseID); err != nil {
			a.Log.Fatal("re-embed failed", "course_id", courseID, "error", err)
		}
	case "generate":
		summary, err := a.Services.Professor.GenerateQuestionsForCourse(ctx, courseID)
		if err != nil {
			a.Log.Fatal("batch generation failed", "course_id", courseID, "error", err)
		}
		fmt.Println(summary)
	case "ask":
		question, err := a.Services.Professor.GenerateSingleQuestion(ctx, services.GenerateInput{CourseID: courseID})
		if err != nil {
			a.Log.Fatal("question generation failed", "course_id", courseID, "error", err)
		}
		fmt.Printf("Question: %s\nIdeal Answer: %s\n", question.QuestionText, question.IdealAnswer)
	case "clear":
		if err := a.Services.Ingestion.ClearCourseData(ctx, courseID); err != nil {
			a.Log.Fatal("clear failed", "course_id", courseID, "error", err)
		}
	default:
		usage()
	}
}

// ensureCourse creates the course row on first ingest so the status machine
// has something to track.
func ensureCourse(ctx context.Context, a *app.App, courseID uuid.UUID) {
	if _, err := a.Repos.Courses.GetByID(ctx, nil, courseID); err == nil {
		return
	}
	course := &types.Course{
		ID:              courseID,
		Title:           "Untitled Course",
		IngestionStatus: types.IngestionPending,
	}
	if _, err := a.Repos.Courses.Create(ctx, nil, course); err != nil {
		a.Log.Fatal("could not create course", "course_id", courseID, "error", err)
	}
}
