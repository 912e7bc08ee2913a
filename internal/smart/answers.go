package smart

// Curated answers for question types whose content does not depend on
// the catalog. Kept as data so the texts can be reviewed and updated
// without touching the rendering logic.

const admissionAnswer = `🎯 Требования для поступления:

📋 **Необходимые документы:**
• Диплом бакалавра или специалиста
• Транскрипт с оценками
• Мотивационное письмо
• Портфолио проектов (рекомендуется)

💻 **Вступительные испытания:**
• Собеседование по профилю программы
• Техническое задание (возможно)
• Английский язык (базовый уровень)

📅 **Сроки подачи документов:**
• Обычно до июля текущего года
• Точные даты смотрите на сайте ИТМО

🔗 **Подробнее:** https://abit.itmo.ru/

💡 Рекомендуется иметь опыт в программировании и математике`

const careerAnswer = `💼 Карьерные перспективы выпускников:

🤖 **После "Искусственный интеллект":**
• Data Scientist / ML Engineer
• Research Scientist
• AI Architect
• Computer Vision Engineer
• NLP Engineer

🚀 **После "AI-продукты":**
• Product Manager (AI/ML)
• AI Product Owner
• ML Solutions Architect
• Technical Product Manager
• AI Consultant

💰 **Средние зарплаты в РФ:**
• Junior: 80-150k руб/мес
• Middle: 150-300k руб/мес
• Senior: 300-500k+ руб/мес

🌍 **Международные возможности:**
• Удаленная работа в зарубежных компаниях
• Релокация в IT-хабы
• Участие в международных проектах

🎓 Диплом ИТМО высоко ценится в IT-индустрии`

const durationAnswer = `⏱️ Продолжительность обучения:

📅 **Стандартная программа:**
• 2 года (4 семестра)
• Очная форма обучения
• Полная занятость

📚 **Структура:**
• 1-й год: Базовые курсы + специализация
• 2-й год: Продвинутые темы + дипломная работа

⚡ **Интенсивность:**
• ~20-30 часов в неделю
• Лекции, семинары, практические работы
• Самостоятельная работа и проекты

🎓 **Выпуск:**
• Защита магистерской диссертации
• Получение диплома магистра ИТМО

💡 Возможны индивидуальные траектории обучения`

// tracksAdvice closes the learning tracks answer after the per-program
// breakdown.
const tracksAdvice = `💡 **Варианты специализации:**

🤖 **Для исследователей:**
• Фокус на теоретические курсы
• Машинное и глубокое обучение
• Математическая статистика

💼 **Для практиков:**
• Python разработка
• Веб-приложения и продукты
• Прикладные проекты

🎯 **Для специалистов по данным:**
• Анализ данных
• Computer Vision или NLP
• Рекомендательные системы

📋 **Как выбрать:**
1. Определите цель: исследования или практика
2. Выберите основную программу
3. Сформируйте портфель элективов
4. Консультируйтесь с кураторами

🔍 Для персональных рекомендаций используйте 'Получить рекомендации'`
