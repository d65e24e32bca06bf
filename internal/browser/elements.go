// File: internal/browser/elements.go
package browser

import (
	"encoding/json"
	"fmt"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

const (
	defaultMaxElements  = 200
	defaultExcerptChars = 400

	// elementTextChars caps the text carried per element so a single link
	// farm cannot dominate the planner's context.
	elementTextChars = 20
)

// interactiveSelectors matches the elements a user could plausibly interact
// with: native controls, ARIA roles, inline handlers, and the class names
// common UI frameworks attach to clickable things.
const interactiveSelectors = `[
    'a', 'button', 'input', 'select', 'textarea', 'label',
    'details', 'summary', 'audio[controls]', 'video[controls]',

    'form', 'fieldset', 'legend', 'option', 'optgroup',
    'input[type="text"]', 'input[type="password"]', 'input[type="checkbox"]',
    'input[type="radio"]', 'input[type="submit"]', 'input[type="reset"]',
    'input[type="file"]', 'input[type="image"]', 'input[type="button"]',
    'input[type="search"]', 'input[type="email"]', 'input[type="tel"]',
    'input[type="number"]', 'input[type="range"]', 'input[type="date"]',

    '[tabindex]:not([tabindex="-1"])',

    '[role="button"]', '[role="link"]', '[role="checkbox"]', '[role="radio"]',
    '[role="tab"]', '[role="menuitem"]', '[role="menuitemcheckbox"]',
    '[role="menuitemradio"]', '[role="option"]', '[role="switch"]',
    '[role="textbox"]', '[role="searchbox"]', '[role="spinbutton"]',

    '[onclick]', '[onmousedown]', '[onmouseup]', '[ontouchstart]',
    '[ontouchend]', '[onkeydown]', '[onkeyup]',

    '.btn', '.button', '.clickable', '.link', '.nav-link', '.dropdown-item',
    '.menu-item', '.nav-item', '.toggle', '.switch', '.accordion-button',
    '.card-link', '.page-link', '.list-group-item', '.icon-button',
    '.close', '.dismiss', '.tab-link',

    '.dropdown-toggle', '.navbar-toggler', '.page-item', '.carousel-control',
    '.modal-header .close', '.nav-tabs .nav-link',

    '.mdc-button', '.mat-button', '.mat-icon-button', '.mat-menu-item',
    '.mat-tab-label', '.mat-checkbox', '.mat-radio-button',

    '[data-toggle]', '[data-target]', '[data-dismiss]', '[data-close]',
    '[data-open]', '[data-action]', '[data-trigger]', '[data-bs-toggle]',
    '[data-bs-target]', '[data-bs-dismiss]'
]`

// detectElementsJS builds the script that enumerates visible interactive
// elements. The result objects mirror the JSON shape of schemas.Element so
// chromedp can unmarshal them directly.
func detectElementsJS(maxElements int) string {
	return fmt.Sprintf(`(() => {
    const clickableSelectors = %s;
    const elements = Array.from(document.querySelectorAll(clickableSelectors.join(',')));
    const visibleElements = elements.filter(el => {
        const style = window.getComputedStyle(el);
        const rect = el.getBoundingClientRect();
        return style.display !== 'none' && style.visibility !== 'hidden' && rect.width > 0 && rect.height > 0;
    });
    return visibleElements.slice(0, %d).map((el, index) => {
        const rect = el.getBoundingClientRect();
        return {
            index: index,
            text: (el.textContent || '').trim().substring(0, %d),
            tag_name: el.tagName.toLowerCase(),
            id: el.id || '',
            class_name: (typeof el.className === 'string' ? el.className : ''),
            href: el.href || '',
            type: el.type || '',
            placeholder: el.placeholder || '',
            role: el.getAttribute('role') || '',
            x: Math.round(rect.left),
            y: Math.round(rect.top),
            width: Math.round(rect.width),
            height: Math.round(rect.height)
        };
    });
})()`, interactiveSelectors, maxElements, elementTextChars)
}

// excerptJS builds the script that captures a whitespace-collapsed excerpt of
// the page's visible text.
func excerptJS(maxChars int) string {
	return fmt.Sprintf(`(() => {
    const text = (document.body && document.body.innerText) || '';
    return text.replace(/\s+/g, ' ').trim().substring(0, %d);
})()`, maxChars)
}

// highlightJS builds the script that draws an indexed outline over each
// element. Overlays are tagged with a data attribute so a later call can
// remove them before drawing fresh ones.
func highlightJS(elements []schemas.Element) (string, error) {
	encoded, err := json.Marshal(elements)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`((elements) => {
    document.querySelectorAll('div[data-pilot-overlay]').forEach(overlay => overlay.remove());
    elements.forEach((el) => {
        const overlay = document.createElement('div');
        overlay.setAttribute('data-pilot-overlay', '1');
        overlay.style.position = 'absolute';
        overlay.style.left = el.x + 'px';
        overlay.style.top = el.y + 'px';
        overlay.style.width = el.width + 'px';
        overlay.style.height = el.height + 'px';
        overlay.style.border = '1px solid red';
        overlay.style.backgroundColor = 'rgba(255, 0, 0, 0.05)';
        overlay.style.zIndex = '10000';
        overlay.style.pointerEvents = 'none';

        const label = document.createElement('span');
        label.style.background = 'black';
        label.style.color = 'white';
        label.style.fontSize = '12px';
        label.style.padding = '2px';
        label.textContent = String(el.index + 1);

        overlay.appendChild(label);
        document.body.appendChild(overlay);
    });
})(%s)`, string(encoded)), nil
}
