package attribute

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace директория для временных артефактов одного вызова Attribute.
// Имя содержит UUID: параллельные запросы на общей файловой системе
// не должны пересекаться по путям.
type Workspace struct {
	dir string
}

// NewWorkspace создаёт временную директорию вызова.
// baseDir может быть пустым, тогда используется системный temp.
func NewWorkspace(baseDir string) (*Workspace, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, "speakerid-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Path возвращает путь к артефакту внутри workspace
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Dir возвращает корень workspace
func (w *Workspace) Dir() string {
	return w.dir
}

// Cleanup удаляет workspace целиком. Вызывается через defer на всех путях
// выхода, включая отмену запроса: временное аудио не переживает вызов.
func (w *Workspace) Cleanup() {
	if err := os.RemoveAll(w.dir); err != nil {
		log.Printf("[Attribute] failed to clean up workspace %s: %v", w.dir, err)
	}
}
