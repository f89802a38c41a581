package engine

// setPollHook installs a function run at the top of every drain iteration.
// Call it before Start.
func (w *Worker) setPollHook(f func()) {
	w.pollHook = f
}
