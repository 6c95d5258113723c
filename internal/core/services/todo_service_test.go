package services

import (
	"testing"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoService_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.staff)
	lc := f.newCase(f.staff, "홍길동")

	todo, err := f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: " 서류 요청 ", Deadline: "2026-03-20"})
	require.NoError(t, err)
	assert.Equal(t, "서류 요청", todo.Title)
	assert.Equal(t, domain.TodoPending, todo.Status)
	assert.Equal(t, 2, todo.Priority)
	require.NotNil(t, todo.Deadline)
	assert.Equal(t, "2026-03-20", todo.Deadline.Format("2006-01-02"))

	_, err = f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: "담당 지정", AssignedToID: uintPtr(9999)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: "우선순위", Priority: 5})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.todos.Create(f.ctx, actorOf(f.outsider), lc.ID, &TodoInput{Title: "남의 건"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTodoService_UpdateRecordsHistory(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.staff)
	lc := f.newCase(f.staff, "홍길동")

	todo, err := f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: "서류 요청"})
	require.NoError(t, err)

	status := domain.TodoCompleted
	priority := 3
	updated, err := f.todos.Update(f.ctx, actor, todo.ID, &UpdateTodoInput{
		Title:        strPtr("서류 요청"),
		Status:       &status,
		Priority:     &priority,
		AssignedToID: &f.peer.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TodoCompleted, updated.Status)

	history, err := f.todos.History(f.ctx, actor, todo.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	byField := map[string]*models.TodoHistory{}
	for _, h := range history {
		byField[h.FieldName] = h
		assert.Equal(t, f.staff.ID, h.ChangedByID)
	}
	require.Contains(t, byField, "status")
	assert.Equal(t, domain.TodoPending, byField["status"].OldValue)
	assert.Equal(t, domain.TodoCompleted, byField["status"].NewValue)
	require.Contains(t, byField, "priority")
	assert.Equal(t, "2", byField["priority"].OldValue)
	assert.Equal(t, "3", byField["priority"].NewValue)
	require.Contains(t, byField, "assigned_to")
	assert.Empty(t, byField["assigned_to"].OldValue)

	// an update that changes nothing writes no history
	_, err = f.todos.Update(f.ctx, actor, todo.ID, &UpdateTodoInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.count(&models.TodoHistory{}, "todo_id = ?", todo.ID))
}

func TestTodoService_UpdateValidation(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.staff)
	lc := f.newCase(f.staff, "홍길동")
	todo, err := f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: "서류 요청"})
	require.NoError(t, err)

	bad := "done"
	_, err = f.todos.Update(f.ctx, actor, todo.ID, &UpdateTodoInput{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.todos.Update(f.ctx, actorOf(f.peer), todo.ID, &UpdateTodoInput{Title: strPtr("수정")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.todos.Update(f.ctx, actor, 9999, &UpdateTodoInput{Title: strPtr("수정")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTodoService_ListMine(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")

	_, err := f.todos.Create(f.ctx, actorOf(f.staff), lc.ID, &TodoInput{Title: "내 할 일", Priority: 1})
	require.NoError(t, err)
	_, err = f.todos.Create(f.ctx, actorOf(f.leader), lc.ID, &TodoInput{Title: "지시", Priority: 3, AssignedToID: &f.staff.ID})
	require.NoError(t, err)
	archived, err := f.todos.Create(f.ctx, actorOf(f.staff), lc.ID, &TodoInput{Title: "보관"})
	require.NoError(t, err)
	_, err = f.todos.Update(f.ctx, actorOf(f.staff), archived.ID, &UpdateTodoInput{IsArchived: boolPtr(true)})
	require.NoError(t, err)

	mine, err := f.todos.ListMine(f.ctx, actorOf(f.staff))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "지시", mine[0].Title)
	assert.Equal(t, "내 할 일", mine[1].Title)

	leaders, err := f.todos.ListMine(f.ctx, actorOf(f.leader))
	require.NoError(t, err)
	assert.Len(t, leaders, 1)

	byCase, err := f.todos.ListByCase(f.ctx, actorOf(f.staff), lc.ID)
	require.NoError(t, err)
	assert.Len(t, byCase, 2)

	_, err = f.todos.ListMine(f.ctx, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTodoService_Templates(t *testing.T) {
	f := newFixture(t)
	lc := f.newCase(f.staff, "홍길동")

	tmpl, err := f.todos.CreateTemplate(f.ctx, actorOf(f.staff), &TemplateInput{Title: "등기부 확인", Priority: 3})
	require.NoError(t, err)
	_, err = f.todos.CreateTemplate(f.ctx, actorOf(f.peer), &TemplateInput{Title: "동료 템플릿"})
	require.NoError(t, err)

	templates, err := f.todos.ListTemplates(f.ctx, actorOf(f.staff))
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "등기부 확인", templates[0].Title)

	todo, err := f.todos.CreateFromTemplate(f.ctx, actorOf(f.staff), tmpl.ID, lc.ID, "2026-03-25")
	require.NoError(t, err)
	assert.Equal(t, "등기부 확인", todo.Title)
	assert.Equal(t, 3, todo.Priority)
	assert.Equal(t, lc.ID, todo.LoanCaseID)

	// another user's template is invisible
	_, err = f.todos.CreateFromTemplate(f.ctx, actorOf(f.leader), tmpl.ID, lc.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTodoService_Delete(t *testing.T) {
	f := newFixture(t)
	actor := actorOf(f.staff)
	lc := f.newCase(f.staff, "홍길동")
	todo, err := f.todos.Create(f.ctx, actor, lc.ID, &TodoInput{Title: "서류 요청"})
	require.NoError(t, err)
	_, err = f.todos.Update(f.ctx, actor, todo.ID, &UpdateTodoInput{Title: strPtr("서류 재요청")})
	require.NoError(t, err)

	require.NoError(t, f.todos.Delete(f.ctx, actor, todo.ID))
	assert.Zero(t, f.count(&models.TodoHistory{}, "todo_id = ?", todo.ID))
	assert.ErrorIs(t, f.todos.Delete(f.ctx, actor, todo.ID), domain.ErrNotFound)
}
