package sqlinline

const QSelectContentBundle = `--sql 20d2071c-eb2c-4ef1-b8a9-35892f460ccd
select
    gc.id,
    gc.account_id,
    gc.request_id,
    gc.output,
    gc.image_status,
    gc.image_url,
    gc.image_model,
    gc.image_prompt,
    gc.image_error,
    gc.primary_image_asset_id,
    gc.updated_at,
    cr.content_type,
    cr.direction,
    bp.account_id,
    coalesce(bp.name, ''),
    coalesce(bp.niche, ''),
    coalesce(bp.audience, ''),
    coalesce(bp.goals, ''),
    coalesce(bp.colors, '{}'::text[]),
    coalesce(bp.voice, ''),
    logo.url
from generated_contents gc
join content_requests cr on cr.id = gc.request_id
left join brand_profiles bp on bp.account_id = gc.account_id
left join media_assets logo on logo.id = bp.logo_asset_id
where gc.id = $1::uuid
limit 1;
`

const QSelectContentImageState = `--sql ae8ffe5e-dbd3-4f07-a5f0-be7a37e0322d
select
    gc.id,
    gc.image_status,
    gc.image_url,
    gc.image_model,
    gc.image_error,
    gc.primary_image_asset_id
from generated_contents gc
where gc.id = $1::uuid
limit 1;
`

const QMarkContentImageReady = `--sql 8344ad1e-fd1c-40ea-941b-7fca4de0df1d
update generated_contents
set image_status = 'ready',
    image_url = $2::text,
    image_model = $3::text,
    image_prompt = $4::text,
    image_error = null,
    primary_image_asset_id = $5::uuid,
    updated_at = now()
where id = $1::uuid;
`

const QMarkContentImageGenerating = `--sql 4eb82425-731f-4046-93ba-7fd7c56a0f57
update generated_contents
set image_status = 'generating', updated_at = now()
where id = $1::uuid;
`

const QMarkContentImageFailed = `--sql 0dc9c83e-352e-47cc-9b00-21d8994afbf1
update generated_contents
set image_status = 'failed',
    image_error = $2::text,
    updated_at = now()
where id = $1::uuid;
`
