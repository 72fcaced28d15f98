package browser

// Page scripts evaluated through Controller.Evaluate. Each one is a single
// expression whose value is returned by value.

const editorSelectors = `['#prompt-textarea', '[contenteditable="true"][data-lexical-editor]', 'div[contenteditable="true"]', 'textarea']`

const focusScript = `(() => {
  const selectors = ` + editorSelectors + `;
  for (const sel of selectors) {
    const el = document.querySelector(sel);
    if (!el) continue;
    el.focus();
    if (document.activeElement === el || el.contains(document.activeElement)) {
      return { focused: true };
    }
  }
  return { focused: false };
})()`

const readbackScript = `(() => {
  const editor = document.querySelector('#prompt-textarea, div[contenteditable="true"]');
  const textarea = document.querySelector('textarea');
  return {
    editorText: editor ? (editor.innerText || editor.textContent || '') : '',
    fallbackValue: textarea ? (textarea.value || '') : '',
  };
})()`

const clearScript = `(() => {
  const editor = document.querySelector('#prompt-textarea, div[contenteditable="true"]');
  if (editor) editor.innerHTML = '';
  const textarea = document.querySelector('textarea');
  if (textarea) textarea.value = '';
  return true;
})()`

// sendButtonScript clicks the send control when it is usable and reports
// "clicked", "disabled" or "missing".
const sendButtonScript = `(() => {
  const selectors = ['button[data-testid="send-button"]', 'button[aria-label="Send prompt"]', 'button[aria-label*="Send"]'];
  for (const sel of selectors) {
    const btn = document.querySelector(sel);
    if (!btn) continue;
    const style = window.getComputedStyle(btn);
    if (btn.disabled || btn.getAttribute('aria-disabled') === 'true' || style.display === 'none' || style.visibility === 'hidden') {
      return 'disabled';
    }
    btn.click();
    return 'clicked';
  }
  return 'missing';
})()`

// answerScript reports the latest assistant turn and whether generation stopped.
const answerScript = `(() => {
  const turns = document.querySelectorAll('[data-message-author-role="assistant"]');
  const last = turns.length ? turns[turns.length - 1] : null;
  const streaming = !!document.querySelector('button[data-testid="stop-button"]');
  return {
    count: turns.length,
    done: !!last && !streaming,
    text: last ? (last.innerText || '') : '',
  };
})()`

const turnCountScript = `document.querySelectorAll('[data-message-author-role="assistant"]').length`
